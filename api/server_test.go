package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
	
	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/katatrina/feedpush/internal/event"
	"github.com/katatrina/feedpush/internal/registry"
	"github.com/katatrina/feedpush/internal/util"
	"github.com/katatrina/feedpush/internal/worker"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const (
	testSecret    = "12345678901234567890123456789012"
	testPublicKey = "BEl62iUYgUivxIkv69yViEuiBIa-Ib9-SkvMeAtA3LFgDzkrxZJjSgSnfckjBJuBkr3qBUYIHBQFLXYp5Nksh8U"
)

type distributedTask struct {
	payload *worker.PayloadSendNotification
	opts    []asynq.Option
}

type fakeDistributor struct {
	mu    sync.Mutex
	tasks []distributedTask
	err   error
}

func (d *fakeDistributor) DistributeTaskSendNotification(ctx context.Context, payload *worker.PayloadSendNotification, opts ...asynq.Option) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.tasks = append(d.tasks, distributedTask{payload: payload, opts: opts})
	return nil
}

type fakeInspector struct {
	tasks   map[string]*asynq.TaskInfo
	deleted []string
}

func (i *fakeInspector) GetTaskInfo(ctx context.Context, queue, taskID string) (*asynq.TaskInfo, error) {
	info, ok := i.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("asynq: %w", asynq.ErrTaskNotFound)
	}
	return info, nil
}

func (i *fakeInspector) DeleteTask(ctx context.Context, queue, taskID string) error {
	if _, ok := i.tasks[taskID]; !ok {
		return fmt.Errorf("asynq: %w", asynq.ErrTaskNotFound)
	}
	delete(i.tasks, taskID)
	i.deleted = append(i.deleted, taskID)
	return nil
}

type testServer struct {
	*Server
	registrations *registry.Store
	distributor   *fakeDistributor
	inspector     *fakeInspector
	hub           *event.SSEServer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })
	
	config := &util.Config{
		AllowedOrigins:  []string{"http://localhost:3000"},
		TokenSecretKey:  testSecret,
		VAPIDPublicKey:  testPublicKey,
		RegistrationTTL: time.Hour,
	}
	
	ts := &testServer{
		registrations: registry.NewStore(redisClient, registry.WithTTL(config.RegistrationTTL)),
		distributor:   &fakeDistributor{},
		inspector:     &fakeInspector{tasks: make(map[string]*asynq.TaskInfo)},
		hub:           event.NewSSEServer(),
	}
	go ts.hub.Run()
	
	server, err := NewServer(config, ts.registrations, ts.distributor, ts.inspector, ts.hub)
	require.NoError(t, err)
	ts.Server = server
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	
	request, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	request.Header.Set("Content-Type", "application/json")
	for key, values := range header {
		for _, value := range values {
			request.Header.Add(key, value)
		}
	}
	
	recorder := httptest.NewRecorder()
	ts.router.ServeHTTP(recorder, request)
	return recorder
}
