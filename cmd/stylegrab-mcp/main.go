package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/stylegrab/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func main() {
	apiURL := os.Getenv("STYLEGRAB_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("STYLEGRAB_API_KEY")

	s := server.NewMCPServer(
		"stylegrab",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	scrapeTool := mcp.NewTool("scrape_element_styles",
		mcp.WithDescription("Open a page in a browser session and capture the computed styles of every draggable screenshot container, its first image and its first click target."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the page to scrape"),
		),
		mcp.WithString("engine",
			mcp.Description("Session backend. Empty uses the server default."),
			mcp.Enum("rod", "rod-stealth", "chromedp", "selenium", "static"),
		),
		mcp.WithNumber("settle_ms",
			mcp.Description("Fixed wait after navigation in milliseconds (default 5000)"),
		),
		mcp.WithString("wait_selector",
			mcp.Description("Poll for this CSS selector instead of waiting a fixed delay"),
		),
		mcp.WithString("format",
			mcp.Description("Result shape: 'summary' (default), 'json' (full records) or 'csv' (flattened table)"),
			mcp.Enum("summary", "json", "csv"),
		),
	)

	s.AddTool(scrapeTool, handleScrape(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleScrape(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 5 * time.Minute}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		req := models.ScrapeRequest{
			URL:          url,
			Engine:       request.GetString("engine", ""),
			SettleMs:     request.GetInt("settle_ms", 0),
			WaitSelector: request.GetString("wait_selector", ""),
		}

		format := request.GetString("format", "summary")
		path := "/api/v1/scrape"
		if format == "csv" {
			path = "/api/v1/scrape/export?format=csv"
		}

		status, body, err := apiPost(ctx, client, apiURL, apiKey, path, req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if format == "csv" && status == http.StatusOK {
			return mcp.NewToolResultText(string(body)), nil
		}

		var resp models.ScrapeResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !resp.Success {
			errMsg := "scrape failed"
			if resp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", resp.Error.Code, resp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		if format == "json" {
			out, err := json.MarshalIndent(resp.Records, "", "  ")
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("failed to encode records: %v", err)), nil
			}
			return mcp.NewToolResultText(string(out)), nil
		}
		return mcp.NewToolResultText(summarize(&resp)), nil
	}
}

// summarize renders a short human-readable report of a scrape.
func summarize(resp *models.ScrapeResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Source: %s\nEngine: %s\nElements: %d (records: %d)\n",
		resp.URL, resp.EngineUsed, resp.ElementCount, len(resp.Records))

	for _, rec := range resp.Records {
		fmt.Fprintf(&b, "\n#%d display=%s position=%s", rec.Index,
			rec.Main.Style["display"], rec.Main.Style["position"])
		if rec.Image != nil && rec.Image.Src != nil {
			fmt.Fprintf(&b, " img=%s", *rec.Image.Src)
		}
		if rec.Pointer != nil {
			fmt.Fprintf(&b, " pointer=(%s, %s)", rec.Pointer.Style["left"], rec.Pointer.Style["top"])
		}
	}

	if len(resp.Warnings) > 0 {
		b.WriteString("\n\nWarnings:")
		for _, w := range resp.Warnings {
			fmt.Fprintf(&b, "\n- element %d [%s] %s", w.Index, w.Code, w.Message)
		}
	}
	fmt.Fprintf(&b, "\n\n---\nTiming: %dms total", resp.Timing.TotalMs)
	return b.String()
}

// apiPost sends a POST request to the stylegrab API and returns the status and body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload interface{}) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}
