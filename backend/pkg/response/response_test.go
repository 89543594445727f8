package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestNewPagination(t *testing.T) {
	cases := []struct {
		total    int64
		pageSize int
		want     int
	}{
		{0, 20, 0},
		{1, 20, 1},
		{40, 20, 2},
		{41, 20, 3},
		{5, 0, 1},
	}
	for _, tc := range cases {
		if got := NewPagination(tc.total, 1, tc.pageSize).TotalPages; got != tc.want {
			t.Errorf("total=%d page_size=%d: 期望 %d 页，实际 %d", tc.total, tc.pageSize, tc.want, got)
		}
	}
}

func TestError_CarriesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("request_id", "rid-1")

	Conflict(c, 10006, "冲突")

	if w.Code != http.StatusConflict {
		t.Fatalf("期望 409，实际 %d", w.Code)
	}
	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if resp.RequestID != "rid-1" || resp.Code != 10006 {
		t.Errorf("期望 request_id=rid-1 code=10006，实际 %+v", resp)
	}
}
