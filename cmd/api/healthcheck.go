// cmd/api/healthcheck.go
package main

import "net/http"

// healthcheckHandler handles GET /healthcheck. It reports that the server is
// up along with the runtime environment and version, for load balancers and
// operators.
func (app *applicationDependencies) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	payload := envelope{
		"success": true,
		"message": "service available",
		"data": map[string]string{
			"environment": app.config.environment,
			"version":     appVersion,
		},
	}

	err := app.writeJSON(w, http.StatusOK, payload, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
