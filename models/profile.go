package models

import (
	"fmt"
	"math"
	"time"
)

const (
	centimetresPerInch = 2.54
	poundsPerKilogram  = 2.205
)

// UserSummary is the profile as shown on the dashboard. Profiles are requested
// with the en_US locale, so height arrives in inches and weight in pounds.
type UserSummary struct {
	FullName    string
	DateOfBirth string
	Age         int
	HeightCM    float64
	WeightKG    float64
}

func SummarizeProfile(p UserProfile) UserSummary {
	return UserSummary{
		FullName:    p.FullName,
		DateOfBirth: FormatDateOfBirth(p.DateOfBirth),
		Age:         p.Age,
		HeightCM:    roundTenth(p.Height * centimetresPerInch),
		WeightKG:    roundTenth(p.Weight / poundsPerKilogram),
	}
}

// FormatDateOfBirth converts 1990-04-30 to 30/04/1990. Unparseable values are
// returned unchanged.
func FormatDateOfBirth(dob string) string {
	t, err := time.Parse(fitbitDateLayout, dob)
	if err != nil {
		return dob
	}
	return t.Format("02/01/2006")
}

// Markdown renders the summary as the bold-label list shown under User Information.
func (u UserSummary) Markdown() string {
	return fmt.Sprintf("**Name:** %s\n\n**Date of Birth:** %s\n\n**Age:** %d\n\n**Height:** %.1fcm\n\n**Weight:** %.1fkg\n",
		u.FullName, u.DateOfBirth, u.Age, u.HeightCM, u.WeightKG)
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
