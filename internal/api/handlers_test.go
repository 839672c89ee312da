// Postlens - Influencer Post Analytics
// Copyright 2026 K. Mori (kmori)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmori/postlens

package api

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/kmori/postlens/internal/config"
	"github.com/kmori/postlens/internal/ingest"
	"github.com/kmori/postlens/internal/models"
	"github.com/kmori/postlens/internal/tokenizer"
)

// fakeStatsStore serves canned analytics data.
type fakeStatsStore struct {
	pingErr  error
	overview *models.OverviewStats
	byID     map[int64]*models.InfluencerStats
	rankings []models.RankingEntry
	texts    map[int64][]string
}

func (s *fakeStatsStore) Ping(context.Context) error { return s.pingErr }

func (s *fakeStatsStore) GetOverviewStats(context.Context) (*models.OverviewStats, error) {
	return s.overview, nil
}

func (s *fakeStatsStore) GetInfluencerStats(_ context.Context, id int64) (*models.InfluencerStats, error) {
	return s.byID[id], nil
}

func (s *fakeStatsStore) RankInfluencers(_ context.Context, metric string, limit int) ([]models.RankingEntry, error) {
	if len(s.rankings) > limit {
		return s.rankings[:limit], nil
	}
	return s.rankings, nil
}

func (s *fakeStatsStore) GetInfluencerTexts(_ context.Context, id int64, _ int) ([]string, error) {
	return s.texts[id], nil
}

// fakeImporter records the upload it received and answers with a preset
// result or error.
type fakeImporter struct {
	result   *models.ImportResult
	err      error
	gotData  []byte
	gotName  string
	numCalls int
}

func (f *fakeImporter) ImportBuffer(_ context.Context, data []byte, fileName string) (*models.ImportResult, error) {
	f.numCalls++
	f.gotData = data
	f.gotName = fileName
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// fakeHistory accumulates appended runs in memory.
type fakeHistory struct {
	runs []*models.ImportResult
}

func (f *fakeHistory) Append(result *models.ImportResult) error {
	f.runs = append(f.runs, result)
	return nil
}

func (f *fakeHistory) Recent(n int) ([]*models.ImportResult, error) {
	if len(f.runs) > n {
		return f.runs[:n], nil
	}
	return f.runs, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8480, Timeout: 30 * time.Second},
		Import: config.ImportConfig{
			BatchSize:   1000,
			MaxFileSize: 1 << 20,
		},
		Security: config.SecurityConfig{
			RateLimitReqs:   1000,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		API: config.APIConfig{DefaultPageSize: 20, MaxPageSize: 100},
	}
}

// newTestServer builds a full router around the fakes so requests pass
// through the real middleware stack.
func newTestServer(t *testing.T, cfg *config.Config, store StatsStore, importer Importer, history RunHistory) *httptest.Server {
	t.Helper()

	handlers := NewHandlers(cfg, store, importer, history, tokenizer.NewProvider())
	server := httptest.NewServer(NewRouter(cfg, handlers).Setup())
	t.Cleanup(server.Close)
	return server
}

// decodeEnvelope parses the standard response envelope.
func decodeEnvelope(t *testing.T, resp *http.Response) *models.APIResponse {
	t.Helper()

	defer resp.Body.Close()
	envelope := &models.APIResponse{}
	if err := json.NewDecoder(resp.Body).Decode(envelope); err != nil {
		t.Fatalf("failed to decode response envelope: %v", err)
	}
	return envelope
}

// dataAs remarshals the envelope's Data field into out.
func dataAs(t *testing.T, envelope *models.APIResponse, out interface{}) {
	t.Helper()

	raw, err := json.Marshal(envelope.Data)
	if err != nil {
		t.Fatalf("failed to remarshal data: %v", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatalf("failed to unmarshal data: %v", err)
	}
}

func TestHandleImportRawBody(t *testing.T) {
	importer := &fakeImporter{result: &models.ImportResult{
		TotalProcessed: 3, TotalImported: 3, FileName: "posts.csv",
		StartTime: time.Now(), EndTime: time.Now(),
	}}
	history := &fakeHistory{}
	server := newTestServer(t, testConfig(), &fakeStatsStore{}, importer, history)

	body := "influencer_id,post_id\n1,a\n1,b\n1,c\n"
	req, err := http.NewRequest(http.MethodPost, server.URL+"/api/v1/import/posts", strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "text/csv")
	req.Header.Set("X-File-Name", "posts.csv")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	envelope := decodeEnvelope(t, resp)
	if envelope.Status != "success" {
		t.Errorf("envelope status = %q, want success", envelope.Status)
	}
	var summary models.ImportSummary
	dataAs(t, envelope, &summary)
	if summary.Status != "completed" {
		t.Errorf("summary status = %q, want completed", summary.Status)
	}
	if summary.TotalImported != 3 {
		t.Errorf("TotalImported = %d, want 3", summary.TotalImported)
	}

	if importer.gotName != "posts.csv" {
		t.Errorf("importer file name = %q, want posts.csv", importer.gotName)
	}
	if string(importer.gotData) != body {
		t.Error("importer did not receive the raw body")
	}
	if len(history.runs) != 1 {
		t.Errorf("history holds %d runs, want 1", len(history.runs))
	}
}

func TestHandleImportMultipart(t *testing.T) {
	importer := &fakeImporter{result: &models.ImportResult{
		StartTime: time.Now(), EndTime: time.Now(),
	}}
	server := newTestServer(t, testConfig(), &fakeStatsStore{}, importer, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "upload_batch.csv")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte("influencer_id,post_id\n1,a\n")); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	resp, err := http.Post(server.URL+"/api/v1/import/posts", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if importer.gotName != "upload_batch.csv" {
		t.Errorf("importer file name = %q, want upload_batch.csv", importer.gotName)
	}
}

func TestHandleImportDecodeError(t *testing.T) {
	importer := &fakeImporter{err: &ingest.DecodeError{Err: errors.New("missing required column")}}
	history := &fakeHistory{}
	server := newTestServer(t, testConfig(), &fakeStatsStore{}, importer, history)

	resp, err := http.Post(server.URL+"/api/v1/import/posts", "text/csv",
		strings.NewReader("influencer_id,likes\n1,5\n"))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	envelope := decodeEnvelope(t, resp)
	if envelope.Error == nil || envelope.Error.Code != "IMPORT_DECODE_ERROR" {
		t.Errorf("error = %+v, want code IMPORT_DECODE_ERROR", envelope.Error)
	}
	if len(history.runs) != 0 {
		t.Errorf("history holds %d runs, want 0 after a failed run", len(history.runs))
	}
}

func TestHandleImportPayloadTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Import.MaxFileSize = 16
	importer := &fakeImporter{}
	server := newTestServer(t, cfg, &fakeStatsStore{}, importer, nil)

	resp, err := http.Post(server.URL+"/api/v1/import/posts", "text/csv",
		strings.NewReader(strings.Repeat("x", 64)))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", resp.StatusCode)
	}

	envelope := decodeEnvelope(t, resp)
	if envelope.Error == nil || envelope.Error.Code != "PAYLOAD_TOO_LARGE" {
		t.Errorf("error = %+v, want code PAYLOAD_TOO_LARGE", envelope.Error)
	}
	if importer.numCalls != 0 {
		t.Errorf("importer called %d times, want 0", importer.numCalls)
	}
}

func TestHandleImportStatus(t *testing.T) {
	server := newTestServer(t, testConfig(), &fakeStatsStore{}, &fakeImporter{}, nil)

	resp, err := http.Get(server.URL + "/api/v1/import/status")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var status importStatusResponse
	dataAs(t, decodeEnvelope(t, resp), &status)
	if status.Status != "ready" {
		t.Errorf("status = %q, want ready", status.Status)
	}
	if status.Database.Type != "duckdb" || status.Database.Status != "connected" {
		t.Errorf("database = %+v, want connected duckdb", status.Database)
	}
	if status.Capabilities.BatchSize != 1000 {
		t.Errorf("batch size = %d, want 1000", status.Capabilities.BatchSize)
	}
	if len(status.Capabilities.RequiredColumns) != 2 {
		t.Errorf("required columns = %v, want influencer_id and post_id",
			status.Capabilities.RequiredColumns)
	}
}

func TestHandleImportHistory(t *testing.T) {
	t.Run("with history", func(t *testing.T) {
		history := &fakeHistory{runs: []*models.ImportResult{
			{FileName: "newest.csv"}, {FileName: "older.csv"},
		}}
		server := newTestServer(t, testConfig(), &fakeStatsStore{}, &fakeImporter{}, history)

		resp, err := http.Get(server.URL + "/api/v1/import/history")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		var runs []*models.ImportResult
		dataAs(t, decodeEnvelope(t, resp), &runs)
		if len(runs) != 2 || runs[0].FileName != "newest.csv" {
			t.Errorf("runs = %v, want 2 runs with newest first", runs)
		}
	})

	t.Run("history disabled", func(t *testing.T) {
		server := newTestServer(t, testConfig(), &fakeStatsStore{}, &fakeImporter{}, nil)

		resp, err := http.Get(server.URL + "/api/v1/import/history")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		var runs []*models.ImportResult
		dataAs(t, decodeEnvelope(t, resp), &runs)
		if len(runs) != 0 {
			t.Errorf("runs = %v, want empty list", runs)
		}
	})
}

func TestHandleStats(t *testing.T) {
	store := &fakeStatsStore{overview: &models.OverviewStats{
		TotalPosts: 10, TotalInfluencers: 3, AvgLikes: 25.5,
	}}
	server := newTestServer(t, testConfig(), store, &fakeImporter{}, nil)

	resp, err := http.Get(server.URL + "/api/v1/stats")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var stats models.OverviewStats
	dataAs(t, decodeEnvelope(t, resp), &stats)
	if stats.TotalPosts != 10 || stats.TotalInfluencers != 3 {
		t.Errorf("stats = %+v, want totals (10, 3)", stats)
	}
}

func TestHandleInfluencerStats(t *testing.T) {
	store := &fakeStatsStore{byID: map[int64]*models.InfluencerStats{
		7: {InfluencerID: 7, PostCount: 4, TotalLikes: 400},
	}}
	server := newTestServer(t, testConfig(), store, &fakeImporter{}, nil)

	t.Run("known influencer", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/v1/influencers/7/stats")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		var stats models.InfluencerStats
		dataAs(t, decodeEnvelope(t, resp), &stats)
		if stats.InfluencerID != 7 || stats.PostCount != 4 {
			t.Errorf("stats = %+v, want influencer 7 with 4 posts", stats)
		}
	})

	t.Run("unknown influencer", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/v1/influencers/99/stats")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
		resp.Body.Close()
	})

	t.Run("invalid id", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/v1/influencers/abc/stats")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
		resp.Body.Close()
	})
}

func TestHandleRankings(t *testing.T) {
	store := &fakeStatsStore{rankings: []models.RankingEntry{
		{Rank: 1, InfluencerID: 2, PostCount: 5, AvgValue: 100},
		{Rank: 2, InfluencerID: 1, PostCount: 3, AvgValue: 50},
	}}
	server := newTestServer(t, testConfig(), store, &fakeImporter{}, nil)

	t.Run("default metric", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/v1/rankings")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		var entries []models.RankingEntry
		dataAs(t, decodeEnvelope(t, resp), &entries)
		if len(entries) != 2 || entries[0].InfluencerID != 2 {
			t.Errorf("entries = %v, want influencer 2 first", entries)
		}
	})

	t.Run("explicit metric", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/v1/rankings?metric=comments&limit=1")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		var entries []models.RankingEntry
		dataAs(t, decodeEnvelope(t, resp), &entries)
		if len(entries) != 1 {
			t.Errorf("got %d entries, want 1", len(entries))
		}
	})

	t.Run("unknown metric", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/v1/rankings?metric=followers")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
		envelope := decodeEnvelope(t, resp)
		if envelope.Error == nil || envelope.Error.Code != "VALIDATION_ERROR" {
			t.Errorf("error = %+v, want code VALIDATION_ERROR", envelope.Error)
		}
	})

	t.Run("limit out of range", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/v1/rankings?limit=1000")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
		resp.Body.Close()
	})
}

func TestHandleInfluencerNouns(t *testing.T) {
	store := &fakeStatsStore{texts: map[int64][]string{}}
	server := newTestServer(t, testConfig(), store, &fakeImporter{}, nil)

	t.Run("no texts", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/v1/influencers/5/nouns")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
		resp.Body.Close()
	})

	t.Run("invalid id", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/v1/influencers/-1/nouns")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
		resp.Body.Close()
	})
}

func TestHealthEndpoints(t *testing.T) {
	t.Run("live", func(t *testing.T) {
		server := newTestServer(t, testConfig(), &fakeStatsStore{}, &fakeImporter{}, nil)

		resp, err := http.Get(server.URL + "/api/v1/health/live")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want 200", resp.StatusCode)
		}
		resp.Body.Close()
	})

	t.Run("ready with healthy store", func(t *testing.T) {
		server := newTestServer(t, testConfig(), &fakeStatsStore{}, &fakeImporter{}, nil)

		resp, err := http.Get(server.URL + "/api/v1/health/ready")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want 200", resp.StatusCode)
		}
		resp.Body.Close()
	})

	t.Run("ready with dead store", func(t *testing.T) {
		store := &fakeStatsStore{pingErr: errors.New("connection refused")}
		server := newTestServer(t, testConfig(), store, &fakeImporter{}, nil)

		resp, err := http.Get(server.URL + "/api/v1/health/ready")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", resp.StatusCode)
		}
		resp.Body.Close()
	})
}

func TestRequestIDHeader(t *testing.T) {
	server := newTestServer(t, testConfig(), &fakeStatsStore{}, &fakeImporter{}, nil)

	t.Run("generated", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/v1/health/live")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.Header.Get(requestIDHeader) == "" {
			t.Error("response is missing the request id header")
		}
	})

	t.Run("propagated", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, server.URL+"/api/v1/health/live", nil)
		if err != nil {
			t.Fatalf("failed to build request: %v", err)
		}
		req.Header.Set(requestIDHeader, "caller-supplied-id")

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if got := resp.Header.Get(requestIDHeader); got != "caller-supplied-id" {
			t.Errorf("request id = %q, want the caller-supplied value", got)
		}
	})
}
