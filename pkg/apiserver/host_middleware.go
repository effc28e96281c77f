package apiserver

import (
	"context"
	"net/http"

	"github.com/acorn-io/acorn-edge/pkg/host"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type ContextKey string

const HostClassification ContextKey = "hostClassification"

// hostMiddleware classifies the request authority once, answers www hosts with
// a permanent redirect and stores the classification for the routes below.
func hostMiddleware(classifier host.Classifier, varyHeader string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cl := classifier.Classify(r)
			addVary(w.Header(), varyHeader)

			if cl.RedirectWWW {
				target := host.WWWRedirectURL(r, cl)
				logrus.Debugf("redirecting %s to %s", cl.HostPort, target)
				http.Redirect(w, r, target, http.StatusMovedPermanently)
				return
			}

			ctx := context.WithValue(r.Context(), HostClassification, cl)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func classificationFromContext(ctx context.Context) host.Classification {
	cl, _ := ctx.Value(HostClassification).(host.Classification)
	return cl
}

func isSubdomain(r *http.Request, _ *mux.RouteMatch) bool {
	return classificationFromContext(r.Context()).HasSubdomain()
}

func notSubdomain(r *http.Request, m *mux.RouteMatch) bool {
	return !isSubdomain(r, m)
}
