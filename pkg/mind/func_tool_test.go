package mind_test

import (
	"testing"

	"github.com/necklaceai/necklace/go/pkg/mind"
)

type setAlarmArgs struct {
	Time    string `json:"time" jsonschema:"alarm time in HH:MM format"`
	Label   string `json:"label,omitempty"`
	Message string `json:"message,omitempty"`
}

func TestFuncToolSchema(t *testing.T) {
	tool := mind.MustNewFuncTool[setAlarmArgs]("alarm_set", "set an alarm")
	if tool.Argument == nil {
		t.Fatal("no argument schema generated")
	}
	if _, ok := tool.Argument.Properties["time"]; !ok {
		t.Fatalf("schema missing time property: %+v", tool.Argument.Properties)
	}
}

func TestUnmarshalArgs(t *testing.T) {
	call := &mind.FuncCall{Name: "alarm_set", Arguments: `{"time":"07:00","label":"wake"}`}
	var args setAlarmArgs
	if err := call.UnmarshalArgs(&args); err != nil {
		t.Fatalf("UnmarshalArgs: %v", err)
	}
	if args.Time != "07:00" || args.Label != "wake" {
		t.Fatalf("args = %+v", args)
	}
}

func TestUnmarshalArgsRepairsJSON(t *testing.T) {
	// Trailing comma and single quotes, as models sometimes produce.
	call := &mind.FuncCall{Name: "alarm_set", Arguments: `{'time': '07:00',}`}
	var args setAlarmArgs
	if err := call.UnmarshalArgs(&args); err != nil {
		t.Fatalf("UnmarshalArgs: %v", err)
	}
	if args.Time != "07:00" {
		t.Fatalf("args = %+v", args)
	}
}

func TestUnmarshalArgsEmpty(t *testing.T) {
	call := &mind.FuncCall{Name: "alarm_list", Arguments: ""}
	var args struct{}
	if err := call.UnmarshalArgs(&args); err != nil {
		t.Fatalf("UnmarshalArgs empty: %v", err)
	}
}
