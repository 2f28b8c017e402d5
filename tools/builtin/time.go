package builtin

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/toolmesh/core"
	"github.com/hupe1980/toolmesh/tool"
)

type currentTimeArgs struct {
	Timezone string `json:"timezone,omitempty" description:"IANA time zone name, e.g. Europe/Berlin. Defaults to UTC."`
}

// now is replaced in tests.
var now = time.Now

// CurrentTime reports the current time, optionally in a given time zone.
func CurrentTime() tool.IndexedTool {
	return tool.IndexedTool{
		Name: CurrentTimeName,
		Factory: tool.CreateToolFromStruct(
			CurrentTimeName,
			"Returns the current date and time in RFC 3339 format.",
			currentTimeArgs{},
			func(_ context.Context, args map[string]any, _ *core.AgentContext) (any, error) {
				var in currentTimeArgs
				if err := decode(args, &in); err != nil {
					return nil, err
				}

				loc := time.UTC
				if in.Timezone != "" {
					l, err := time.LoadLocation(in.Timezone)
					if err != nil {
						return nil, fmt.Errorf("unknown timezone %q", in.Timezone)
					}
					loc = l
				}

				return now().In(loc).Format(time.RFC3339), nil
			},
		),
	}
}
