package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/codequest-app/codequest/internal/app/casino"
	"github.com/codequest-app/codequest/internal/app/engagement"
	"github.com/codequest-app/codequest/internal/app/reward"
	"github.com/codequest-app/codequest/internal/app/session"
	"github.com/codequest-app/codequest/internal/domain"
)

// horses is the field size of the horse race.
const horses = 4

// sessionMiddleware attaches the caller's session to the request context.
// A bearer token, when sent, must belong to the user in the path.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		token := bearerToken(r)
		if token == "" && s.requireToken {
			writeError(w, http.StatusUnauthorized, "no_session", domain.ErrNoSession.Error())
			return
		}

		if sub := session.TokenSubject(token); sub != "" && sub != userID {
			writeError(w, http.StatusForbidden, "forbidden", "token does not belong to this user")
			return
		}
		sess := session.New(session.Credentials{UserID: userID, AccessToken: token})
		if sess.Expired(s.now()) {
			writeError(w, http.StatusUnauthorized, "session_expired", domain.ErrSessionExpired.Error())
			return
		}
		if s.svc.Provision != nil {
			created, err := s.svc.Provision(r.Context(), userID)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			if created {
				s.log.Info("profile created", "user_id", userID)
			}
		}
		next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), sess)))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func userID(r *http.Request) string {
	if sess, ok := session.FromContext(r.Context()); ok {
		return sess.UserID
	}
	return chi.URLParam(r, "userID")
}

type profileResponse struct {
	Attributes  domain.UserAttributes `json:"attributes"`
	Level       domain.LevelState     `json:"level"`
	ProgressPct int                   `json:"level_progress_pct"`
	Multiplier  float64               `json:"streak_multiplier"`
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	attrs, err := s.svc.Profiles.Attributes(r.Context(), userID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{
		Attributes:  attrs,
		Level:       engagement.StateForXP(attrs.XP),
		ProgressPct: engagement.ProgressPct(attrs.XP),
		Multiplier:  attrs.StreakState().Multiplier(),
	})
}

func (s *Server) handleLevel(w http.ResponseWriter, r *http.Request) {
	state, err := s.svc.Levels.Current(r.Context(), userID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleStreak(w http.ResponseWriter, r *http.Request) {
	streak, err := s.svc.Streaks.Current(r.Context(), userID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"streak":     streak,
		"multiplier": streak.Multiplier(),
	})
}

func (s *Server) handleCourseProgress(w http.ResponseWriter, r *http.Request) {
	course, err := s.svc.Catalog.Course(chi.URLParam(r, "courseID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	done, err := s.svc.Completions.CompletedTasks(r.Context(), userID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"course_id": course.ID,
		"percent":   reward.CourseProgress(course, done),
		"total":     len(course.Tasks),
	})
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.svc.Catalog.Task(chi.URLParam(r, "taskID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.svc.Tracker.Complete(r.Context(), userID(r), task, s.now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	granted, err := s.svc.Daily.Collect(r.Context(), userID(r), s.now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, granted)
}

func (s *Server) handleUserRewards(w http.ResponseWriter, r *http.Request) {
	rewards, err := s.svc.Shop.List(r.Context(), userID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rewards": rewards})
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.svc.Shop.Purchase(r.Context(), userID(r), chi.URLParam(r, "rewardID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

type casinoRequest struct {
	Stake int64  `json:"stake"`
	Call  string `json:"call,omitempty"` // coin flip: "heads" or "tails"
	Pick  int    `json:"pick,omitempty"` // horse race: 1..4
}

type casinoResponse struct {
	domain.CasinoOutcome
	Draw   casino.Draw `json:"draw"`
	Result string      `json:"result,omitempty"`
	Winner int         `json:"winner,omitempty"`
}

func (s *Server) handleCasino(w http.ResponseWriter, r *http.Request) {
	game := domain.Game(chi.URLParam(r, "game"))
	var req casinoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	resp := casinoResponse{}
	switch game {
	case domain.GameCoinFlip:
		call := strings.ToLower(req.Call)
		if call != "heads" && call != "tails" {
			writeError(w, http.StatusBadRequest, "invalid_request", `call must be "heads" or "tails"`)
			return
		}
		resp.Result = "heads"
		if s.random.IntN(2) == 1 {
			resp.Result = "tails"
		}
		resp.Draw.Won = call == resp.Result
	case domain.GameWheel:
		resp.Draw.Angle = s.random.Float64() * 360
	case domain.GameHorseRace:
		if req.Pick < 1 || req.Pick > horses {
			writeError(w, http.StatusBadRequest, "invalid_request", "pick must be between 1 and 4")
			return
		}
		resp.Winner = s.random.IntN(horses) + 1
		resp.Draw.Correct = req.Pick == resp.Winner
	default:
		s.fail(w, r, domain.ErrUnknownGame)
		return
	}

	out, err := s.svc.Casino.Settle(r.Context(), userID(r), game, req.Stake, resp.Draw)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp.CasinoOutcome = out
	writeJSON(w, http.StatusOK, resp)
}
