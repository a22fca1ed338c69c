package tablestore_test

import (
	"testing"
	"time"

	"github.com/myrjola/liftplan/internal/tablestore"
)

func TestRecord_Accessors(t *testing.T) {
	stamp := time.Date(2025, 5, 17, 6, 0, 0, 0, time.UTC)
	rec := tablestore.Record{
		"name":           []byte("Squat"),
		"sets_sqlite":    int64(3),
		"sets_postgres":  int32(4),
		"weight":         int64(40),
		"weight_real":    42.5,
		"created_text":   "2025-05-17T06:00:00.000000000Z",
		"created_native": stamp.In(time.FixedZone("X", 3600)),
		"missing_weight": nil,
	}

	if got := rec.String("name"); got != "Squat" {
		t.Errorf("String() = %q", got)
	}
	if got := rec.Int("sets_sqlite"); got != 3 {
		t.Errorf("Int(int64) = %d", got)
	}
	if got := rec.Int("sets_postgres"); got != 4 {
		t.Errorf("Int(int32) = %d", got)
	}
	if got := rec.Float("weight"); got != 40 {
		t.Errorf("Float(int64) = %v", got)
	}
	if got := rec.Float("weight_real"); got != 42.5 {
		t.Errorf("Float(float64) = %v", got)
	}
	if got := rec.NullFloat("missing_weight"); got != nil {
		t.Errorf("NullFloat(nil) = %v, want nil", *got)
	}
	if got := rec.NullFloat("absent_column"); got != nil {
		t.Errorf("NullFloat(absent) = %v, want nil", *got)
	}
	if got := rec.Time("created_text"); !got.Equal(stamp) {
		t.Errorf("Time(text) = %v", got)
	}
	if got := rec.Time("created_native"); !got.Equal(stamp) || got.Location() != time.UTC {
		t.Errorf("Time(native) = %v", got)
	}
	if got := rec.NullTime("missing_weight"); got != nil {
		t.Errorf("NullTime(nil) = %v, want nil", *got)
	}
}
