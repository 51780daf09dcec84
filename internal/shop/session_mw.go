package shop

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"Ubermelon/internal/session"
)

type ctxKey string

const sessionKey ctxKey = "session"

func sessionFromContext(ctx context.Context) session.Session {
	s, _ := ctx.Value(sessionKey).(session.Session)
	return s
}

// withSession decodes the session cookie once per request and drops cart
// entries the current catalog no longer knows.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := s.Sessions.Load(r)

		if pruned, dropped := sess.Cart.Prune(s.Catalog); len(dropped) > 0 {
			s.Log.Warn("dropped stale cart entries",
				zap.String("session_id", sess.ID),
				zap.Strings("product_ids", dropped),
			)
			sess.Cart = pruned
		}

		ctx := context.WithValue(r.Context(), sessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// commit writes sess back as the session cookie. It reports false after
// answering with a server error.
func (s *Server) commit(w http.ResponseWriter, r *http.Request, sess session.Session) bool {
	if _, err := s.Sessions.Save(w, sess); err != nil {
		s.Log.Error("save session failed", zap.Error(err))
		writeServerError(w, r)
		return false
	}
	return true
}
