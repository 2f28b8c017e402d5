package builtin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hupe1980/toolmesh/core"
	"github.com/hupe1980/toolmesh/internal/util"
	"github.com/hupe1980/toolmesh/tool"
)

const maxBodyBytes = 64 << 10

type httpGetArgs struct {
	URL string `json:"url" description:"Absolute http or https URL to fetch."`
}

// httpClient is replaced in tests.
var httpClient = &http.Client{Timeout: 15 * time.Second}

// HTTPGet fetches a URL and returns status and a truncated body. It reaches
// outside the process, so it requires approval.
func HTTPGet() tool.IndexedTool {
	desc := core.Descriptor{
		Name:             HTTPGetName,
		Description:      "Fetches a web page or API response with an HTTP GET request.",
		Schema:           util.CreateSchema(httpGetArgs{}),
		RequiresApproval: true,
	}

	return tool.NewIndexedTool(desc, func(ctx context.Context, args map[string]any, agentCtx *core.AgentContext) (any, error) {
		var in httpGetArgs
		if err := decode(args, &in); err != nil {
			return nil, err
		}

		u, err := url.Parse(in.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("url must be an absolute http(s) URL")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "toolmesh")

		resp, err := httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", u.Host, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}

		truncated := len(body) > maxBodyBytes
		if truncated {
			body = body[:maxBodyBytes]
		}

		agentCtx.Logger().Debug("builtin.http_get", "host", u.Host, "status", resp.StatusCode, "bytes", len(body))

		return map[string]any{
			"status":       resp.StatusCode,
			"content_type": resp.Header.Get("Content-Type"),
			"body":         string(body),
			"truncated":    truncated,
		}, nil
	})
}
