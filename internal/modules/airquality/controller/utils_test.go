package controller

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"aqdash-server/internal/modules/airquality/types"
)

func Test_parseWindowQuery(t *testing.T) {
	def := types.NewWindow(date(2013, 3, 1), date(2017, 2, 28))

	tests := []struct {
		name      string
		query     string
		wantStart time.Time
		wantEnd   time.Time
		wantErr   bool
		wantRange bool
	}{
		{name: "defaults", query: "", wantStart: def.Start, wantEnd: def.End},
		{name: "both", query: "start=2014-01-01&end=2014-12-31", wantStart: date(2014, 1, 1), wantEnd: date(2014, 12, 31)},
		{name: "single day", query: "start=2014-01-01&end=2014-01-01", wantStart: date(2014, 1, 1), wantEnd: date(2014, 1, 1)},
		{name: "outside bounds is allowed", query: "start=2010-01-01", wantStart: date(2010, 1, 1), wantEnd: def.End},
		{name: "whitespace trimmed", query: "start=%202014-01-01%20", wantStart: date(2014, 1, 1), wantEnd: def.End},
		{name: "bad start", query: "start=2014-13-01", wantErr: true},
		{name: "bad end", query: "end=tomorrow", wantErr: true},
		{name: "datetime rejected", query: "start=2014-01-01T00:00:00Z", wantErr: true},
		{name: "start after end", query: "start=2015-01-02&end=2015-01-01", wantErr: true, wantRange: true},
		{name: "start after default end", query: "start=2018-01-01", wantErr: true, wantRange: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/report?"+tt.query, nil)
			got, err := parseWindowQuery(req, def)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v; wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var rangeErr *types.InvalidRangeError
				if errors.As(err, &rangeErr) != tt.wantRange {
					t.Errorf("InvalidRangeError = %v; want %v (err %v)", !tt.wantRange, tt.wantRange, err)
				}
				return
			}
			if !got.Start.Equal(tt.wantStart) || !got.End.Equal(tt.wantEnd) {
				t.Errorf("window = %v..%v; want %v..%v", got.Start, got.End, tt.wantStart, tt.wantEnd)
			}
		})
	}
}
