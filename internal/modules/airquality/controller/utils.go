package controller

import (
	"net/http"
	"strings"
	"time"

	"aqdash-server/internal/modules/airquality/types"
)

type queryError struct {
	param string
	value string
}

func (e *queryError) Error() string {
	return "invalid '" + e.param + "' (expected YYYY-MM-DD): " + e.value
}

// parseWindowQuery reads start and end as calendar dates; a missing bound
// falls back to def.
func parseWindowQuery(r *http.Request, def types.Window) (types.Window, error) {
	q := r.URL.Query()
	start, end := def.Start, def.End

	if s := strings.TrimSpace(q.Get("start")); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return types.Window{}, &queryError{param: "start", value: s}
		}
		start = t
	}
	if s := strings.TrimSpace(q.Get("end")); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return types.Window{}, &queryError{param: "end", value: s}
		}
		end = t
	}

	w := types.NewWindow(start, end)
	if err := w.Validate(); err != nil {
		return types.Window{}, err
	}
	return w, nil
}
