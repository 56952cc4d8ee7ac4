package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/rs/zerolog/log"

	"github.com/fitdash/fitbit"
	"github.com/fitdash/session"
	"github.com/fitdash/templates"
)

const dateLayout = "2006-01-02"

func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	st := s.sessions.Load(w, r)

	if !st.Authenticated() {
		creds := st.Credentials()
		if creds.ClientID == "" && creds.ClientSecret == "" {
			creds = s.defaults
		}
		component := templates.Login(templates.LoginData{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Flash:        st.TakeFlash(),
			InProgress:   s.auth.InProgress(),
		})
		templ.Handler(component).ServeHTTP(w, r)
		return
	}

	if raw := r.URL.Query().Get("date"); raw != "" {
		if msg := s.applyDate(st, raw); msg != "" {
			st.SetFlash(msg)
		}
	}

	view := BuildView(r.Context(), st, s.data)
	page := dashboardData(view, st.TakeFlash(), session.Day(s.now()))
	templ.Handler(templates.Dashboard(page)).ServeHTTP(w, r)
}

func (s *Server) authHandler(w http.ResponseWriter, r *http.Request) {
	st := s.sessions.Load(w, r)
	s.authorize(r, st)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// authorize runs the flow for the submitted credentials. Failures end up in
// the session flash.
func (s *Server) authorize(r *http.Request, st *session.State) {
	if err := r.ParseForm(); err != nil {
		st.SetFlash("Failed to parse form data")
		return
	}
	creds := session.Credentials{
		ClientID:     r.PostFormValue("client_id"),
		ClientSecret: r.PostFormValue("client_secret"),
	}
	st.SetCredentials(creds)
	if err := s.validate.Struct(creds); err != nil {
		st.SetFlash("Client ID and client secret are both required.")
		return
	}

	tokens, err := s.auth.Authenticate(r.Context(), creds.ClientID, creds.ClientSecret)
	if err != nil {
		log.Warn().Err(err).Str("session", st.ID).Msg("authorization failed")
		st.SetFlash(authFailure(err))
		return
	}

	if old := st.SignOut(); old != "" {
		s.data.Forget(old)
	}
	st.SignIn(s.newClient(creds, tokens, st.UpdateTokens), tokens)
	log.Info().Str("session", st.ID).Str("user", tokens.UserID).Msg("authorized")
}

func authFailure(err error) string {
	if errors.Is(err, fitbit.ErrAuthInProgress) {
		return "Another authorization is already in progress. Finish it in the browser first."
	}
	return "Authorization failed: " + err.Error()
}

func (s *Server) dateHandler(w http.ResponseWriter, r *http.Request) {
	st := s.sessions.Load(w, r)
	if err := r.ParseForm(); err != nil {
		st.SetFlash("Failed to parse form data")
	} else if msg := s.applyDate(st, r.PostFormValue("date")); msg != "" {
		st.SetFlash(msg)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

const (
	invalidDateMessage = "Invalid date, expected YYYY-MM-DD."
	futureDateMessage  = "There is no data for days in the future."
)

// applyDate stores the picked date in the session. It returns the message to
// flash when the date is rejected.
func (s *Server) applyDate(st *session.State, raw string) string {
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		return invalidDateMessage
	}
	if d.After(session.Day(s.now())) {
		return futureDateMessage
	}
	st.SetDate(d)
	return ""
}

func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	st := s.sessions.Load(w, r)
	s.sessions.Delete(w, st.ID)
	log.Info().Str("session", st.ID).Msg("logged out")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	component := templates.Error("Page not found: " + r.URL.Path)
	templ.Handler(component, templ.WithStatus(http.StatusNotFound)).ServeHTTP(w, r)
}

// dashboardData renders the charts and markdown blocks of a view.
func dashboardData(view View, flash string, today time.Time) templates.DashboardData {
	assets := &assetSet{}

	user := templates.Section{Title: "User Information"}
	if fillNotice(&user, view.User.Status, "user") {
		user.Summary = templates.Markdown(view.User.SummaryMarkdown())
	}

	sleep := templates.Section{Title: "Sleep"}
	if fillNotice(&sleep, view.Sleep.Status, "sleep") {
		sleep.Summary = templates.Markdown(view.Sleep.SummaryMarkdown())
		sleep.Charts = []templates.Chart{
			renderChart(stageSummaryChart(view.Sleep.Stages), assets),
			renderChart(stageTimeseriesChart(view.Sleep.Timeseries), assets),
		}
	}

	heart := templates.Section{Title: "Heart Rate"}
	if fillNotice(&heart, view.Heart.Status, "heart rate") {
		heart.Summary = templates.Markdown(view.Heart.SummaryMarkdown())
		heart.Charts = []templates.Chart{
			renderChart(heartRateChart(view.Heart.Series, view.Sleep.Record), assets),
		}
	}

	return templates.DashboardData{
		Date:       view.Date.Format(dateLayout),
		MaxDate:    today.Format(dateLayout),
		APIVersion: fitbit.APIVersion,
		Flash:      flash,
		Assets:     assets.values(),
		User:       user,
		Sleep:      sleep,
		Heart:      heart,
	}
}

// fillNotice sets the notice of a section without data and reports whether
// the section has data to render.
func fillNotice(sec *templates.Section, st Status, kind string) bool {
	if st.OK() {
		return true
	}
	sec.Notice = st.Notice(kind)
	sec.IsError = st.Err != nil
	return false
}
