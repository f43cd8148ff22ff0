package utils

import (
	"encoding/json"
	"log"
	"net/http"
)

const maxBodyBytes = 1 << 20

// ErrorBody 是所有接口统一的错误返回格式
type ErrorBody struct {
	Error string `json:"error"`
}

// RespondJSON 写入状态码并编码 payload；payload 为 nil 时只写状态码
func RespondJSON(w http.ResponseWriter, status int, payload any) {
	if payload == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[http] failed to encode %d response: %v", status, err)
	}
}

// RespondError 以 {"error": message} 返回错误
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, ErrorBody{Error: message})
}

// DecodeJSON 解析请求体，限制最大 1MB
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	return dec.Decode(dst)
}
