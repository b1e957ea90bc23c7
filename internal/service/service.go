// Package service exposes the committee to embedding hosts as JSON methods.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dyike/CortexCommittee/internal/display"
	"github.com/dyike/CortexCommittee/internal/graph"
	"github.com/dyike/CortexCommittee/internal/logging"
	"github.com/dyike/CortexCommittee/internal/models"
	"github.com/dyike/CortexCommittee/internal/storage"
	"github.com/dyike/CortexCommittee/pkg/app"
	"github.com/dyike/CortexCommittee/pkg/bridge"
)

var Version = "0.1.0"

// Runner is the slice of app.Runtime the service needs.
type Runner interface {
	Analyze(ctx context.Context, req *models.AnalysisRequest) (*graph.Result, error)
	Store() *storage.Store
}

var _ Runner = (*app.Runtime)(nil)

type Service struct {
	rt      Runner
	logger  *zap.Logger
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New wraps rt. Runs started through StartAnalysis are cancelled by Close.
func New(rt Runner, logger *zap.Logger, timeout time.Duration) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		rt:      rt,
		logger:  logging.OrNop(logger).Named("service"),
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}

type SystemInfo struct {
	Version string `json:"version"`
	OS      string `json:"os"`
	Arch    string `json:"arch"`
}

func (s *Service) SystemInfo() SystemInfo {
	return SystemInfo{Version: Version, OS: runtime.GOOS, Arch: runtime.GOARCH}
}

// StartAnalysis decodes an AnalysisRequest and runs it in the background. The
// returned request_id tags the started, finished and error events of the run.
func (s *Service) StartAnalysis(paramsJSON string) (map[string]string, error) {
	var req models.AnalysisRequest
	if err := json.Unmarshal([]byte(paramsJSON), &req); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if strings.TrimSpace(req.Topic) == "" {
		return nil, &models.ValidationError{Field: "topic", Reason: "is required"}
	}
	if req.TimeHorizon == "" {
		req.TimeHorizon = models.HorizonMedium
	}
	if req.RiskAppetite == "" {
		req.RiskAppetite = models.RiskBalanced
	}

	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	id := req.RequestID

	started, _ := json.Marshal(map[string]any{"request_id": id, "topic": req.Topic, "symbols": req.Symbols})
	bridge.Notify(bridge.TopicRunStarted, string(started))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx := s.ctx
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		res, err := s.rt.Analyze(ctx, &req)
		if err != nil {
			s.logger.Warn("analysis failed", zap.String("request_id", id), zap.Error(err))
			payload, _ := json.Marshal(map[string]string{"request_id": id, "error": err.Error()})
			bridge.Notify(bridge.TopicRunFailed, string(payload))
			return
		}
		payload, err := json.Marshal(res)
		if err != nil {
			s.logger.Error("encode result", zap.Error(err))
			return
		}
		bridge.Notify(bridge.TopicRunFinished, string(payload))
	}()

	return map[string]string{"status": "started", "request_id": id}, nil
}

type HistoryParams struct {
	Cursor int64 `json:"cursor"`
	Limit  int   `json:"limit"`
}

type HistoryPage struct {
	Items      []storage.RunWithMeta `json:"items"`
	NextCursor int64                 `json:"next_cursor,omitempty"`
	HasMore    bool                  `json:"has_more"`
}

func (s *Service) History(ctx context.Context, paramsJSON string) (*HistoryPage, error) {
	var params HistoryParams
	if strings.TrimSpace(paramsJSON) != "" {
		if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
			return nil, fmt.Errorf("invalid params: %w", err)
		}
	}
	store := s.rt.Store()
	if store == nil {
		return nil, storage.ErrNotConfigured
	}
	if params.Limit <= 0 {
		params.Limit = 50
	}
	runs, err := store.ListRuns(ctx, params.Cursor, params.Limit)
	if err != nil {
		return nil, err
	}
	page := &HistoryPage{Items: runs}
	if len(runs) == params.Limit {
		page.HasMore = true
		page.NextCursor = runs[len(runs)-1].RowID
	}
	return page, nil
}

type HistoryInfoParams struct {
	ID string `json:"id"`
}

type HistoryInfo struct {
	Result   *graph.Result `json:"result"`
	Markdown string        `json:"markdown"`
}

var ErrRunNotFound = errors.New("run not found")

func (s *Service) HistoryInfo(ctx context.Context, paramsJSON string) (*HistoryInfo, error) {
	var params HistoryInfoParams
	if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if strings.TrimSpace(params.ID) == "" {
		return nil, errors.New("id is required")
	}
	store := s.rt.Store()
	if store == nil {
		return nil, storage.ErrNotConfigured
	}
	res, err := store.LoadResult(ctx, params.ID)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, params.ID)
	}
	return &HistoryInfo{Result: res, Markdown: display.Markdown(res)}, nil
}
