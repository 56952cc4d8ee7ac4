package models

import "github.com/goccy/go-json"

// ProfileResponse is the body of GET /1/user/-/profile.json
type ProfileResponse struct {
	User UserProfile `json:"user"`
}

type UserProfile struct {
	Age               int     `json:"age"`
	AverageDailySteps int     `json:"averageDailySteps"`
	DateOfBirth       string  `json:"dateOfBirth"`
	DisplayName       string  `json:"displayName"`
	FirstName         string  `json:"firstName"`
	FullName          string  `json:"fullName"`
	LastName          string  `json:"lastName"`
	Gender            string  `json:"gender"`
	Height            float64 `json:"height"`
	HeightUnit        string  `json:"heightUnit"`
	TimeZone          string  `json:"timezone"`
	Weight            float64 `json:"weight"`
	WeightUnit        string  `json:"weightUnit"`
}

// SleepResponse is the body of GET /1.2/user/-/sleep/date/{date}.json
//
// Summary fields the transforms depend on are pointers so a missing key can be
// told apart from a zero value.
type SleepResponse struct {
	Sleep   []SleepLog       `json:"sleep"`
	Summary *SleepDaySummary `json:"summary"`
}

type SleepLog struct {
	LogID         int64       `json:"logId"`
	DateOfSleep   string      `json:"dateOfSleep"`
	StartTime     string      `json:"startTime"`
	EndTime       string      `json:"endTime"`
	Duration      int64       `json:"duration"`
	Efficiency    int         `json:"efficiency"`
	IsMainSleep   bool        `json:"isMainSleep"`
	MinutesAsleep int         `json:"minutesAsleep"`
	MinutesAwake  int         `json:"minutesAwake"`
	TimeInBed     int         `json:"timeInBed"`
	Type          string      `json:"type"`
	Levels        SleepLevels `json:"levels"`
}

type SleepLevels struct {
	Data      []SleepLevelEntry            `json:"data"`
	ShortData []SleepLevelEntry            `json:"shortData"`
	Summary   map[string]SleepLevelSummary `json:"summary"`
}

type SleepLevelEntry struct {
	DateTime string `json:"dateTime"`
	Level    string `json:"level"`
	Seconds  int    `json:"seconds"`
}

type SleepLevelSummary struct {
	Count               int  `json:"count"`
	Minutes             int  `json:"minutes"`
	ThirtyDayAvgMinutes *int `json:"thirtyDayAvgMinutes"`
}

type SleepDaySummary struct {
	Stages             map[string]int `json:"stages"`
	TotalMinutesAsleep int            `json:"totalMinutesAsleep"`
	TotalSleepRecords  int            `json:"totalSleepRecords"`
	TotalTimeInBed     *int           `json:"totalTimeInBed"`
}

// HeartResponse is the body of
// GET /1/user/-/activities/heart/date/{date}/1d/1min.json
type HeartResponse struct {
	ActivitiesHeart []HeartActivity `json:"activities-heart"`
	Intraday        HeartIntraday   `json:"activities-heart-intraday"`
}

// HeartActivity keeps Value raw: depending on the app type Fitbit returns either
// an object with zones and restingHeartRate or a bare string.
type HeartActivity struct {
	DateTime string          `json:"dateTime"`
	Value    json.RawMessage `json:"value"`
}

type HeartActivityValue struct {
	HeartRateZones   []HeartRateZone `json:"heartRateZones"`
	RestingHeartRate *int            `json:"restingHeartRate"`
}

type HeartRateZone struct {
	CaloriesOut float64 `json:"caloriesOut"`
	Max         int     `json:"max"`
	Min         int     `json:"min"`
	Minutes     int     `json:"minutes"`
	Name        string  `json:"name"`
}

type HeartIntraday struct {
	Dataset         []HeartIntradaySample `json:"dataset"`
	DatasetInterval int                   `json:"datasetInterval"`
	DatasetType     string                `json:"datasetType"`
}

type HeartIntradaySample struct {
	Time  string `json:"time"`
	Value int    `json:"value"`
}
