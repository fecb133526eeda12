package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	e "nuclight.org/tgweb/pkg/entities"
)

func ptr[T any](v T) *T { return &v }

func TestFailedOnly(t *testing.T) {
	now := time.Now()
	reqs := []e.Request{
		{ID: 1, SettledAt: &now, ResultType: ptr("ok")},
		{ID: 2, SettledAt: &now, ErrorMessage: ptr("boom")},
		{ID: 3},
		{ID: 4, SettledAt: &now, ErrorMessage: ptr("gone"), Fatal: true},
	}

	got := failedOnly(reqs)
	ids := make([]int64, 0, len(got))
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []int64{2, 4}, ids)
}

func TestDetail(t *testing.T) {
	assert.Equal(t, "429 slow down", detail(e.Request{ErrorCode: ptr(int32(429)), ErrorMessage: ptr("slow down")}))
	assert.Equal(t, "chats", detail(e.Request{ResultType: ptr("chats")}))
	assert.Empty(t, detail(e.Request{}))
}

func TestPrintTables(t *testing.T) {
	sent := time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local)
	settled := sent.Add(1500 * time.Millisecond)

	var buf bytes.Buffer
	printStats(&buf, []e.TypeStats{{Type: "getChats", Total: 3, Ok: 2, Errors: 1}})
	printRequests(&buf, []e.Request{{ID: 9, Type: "getMe", SentAt: sent, SettledAt: &settled, ResultType: ptr("user")}})

	out := buf.String()
	assert.Contains(t, out, "getChats")
	assert.Contains(t, out, "getMe")
	assert.Contains(t, out, "2026-01-02 03:04:05")
	assert.Contains(t, out, "1.5s")
}
