package service

import (
	"context"
	"encoding/json"
	"errors"
)

type Response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data,omitempty"`
}

// Dispatch routes a host call to the service and encodes the reply.
func (s *Service) Dispatch(method string, paramsJSON string) string {
	var (
		result any
		err    error
	)
	ctx := context.Background()

	switch method {
	case "system.info":
		result = s.SystemInfo()
	case "committee.analyze":
		result, err = s.StartAnalysis(paramsJSON)
	case "committee.history":
		result, err = s.History(ctx, paramsJSON)
	case "committee.history.info":
		result, err = s.HistoryInfo(ctx, paramsJSON)
	default:
		return jsonResp(404, "Method not found", nil)
	}
	if errors.Is(err, ErrRunNotFound) {
		return jsonResp(404, err.Error(), nil)
	}
	if err != nil {
		return jsonResp(500, err.Error(), nil)
	}
	return jsonResp(200, "Ok", result)
}

func jsonResp(code int, msg string, data any) string {
	b, _ := json.Marshal(Response{Code: code, Msg: msg, Data: data})
	return string(b)
}
