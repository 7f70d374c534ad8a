package sched

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hivegate/hivegate/pkg/herr"
	"github.com/hivegate/hivegate/pkg/protocol"
)

const schedDoc = `
protocolVersion: 2
name: sched-probe
type: job
prerequisites:
  - type: dockerimage
    name: base
    uri: registry.example.com/base:latest
taskRoles:
  main:
    instances: 1
    dockerImage: base
    resourcePerInstance:
      cpu: 1
      memoryMB: 1024
      gpu: 1
    commands:
      - echo probe
extras:
  hivedScheduler:
    jobPriorityClass: test
`

func schedSpec(t *testing.T) *protocol.Spec {
	t.Helper()
	spec, err := protocol.Validate([]byte(schedDoc))
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	return spec
}

func TestPassthrough_ReturnsSpecUnchanged(t *testing.T) {
	spec := schedSpec(t)
	got, err := Passthrough{}.Validate(context.Background(), spec, "alice")
	if err != nil {
		t.Fatalf("Passthrough failed: %v", err)
	}
	if got != spec {
		t.Error("Passthrough must return the same spec")
	}
}

func TestHTTPValidator_AcceptsTransformedProtocol(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Submitter"); got != "alice" {
			t.Errorf("X-Submitter = %q, want alice", got)
		}
		if got := r.Header.Get("Content-Type"); got != "text/yaml" {
			t.Errorf("Content-Type = %q, want text/yaml", got)
		}
		// Scheduler rewrites the job name before echoing the document.
		body := strings.Replace(schedDoc, "name: sched-probe", "name: sched-probe-pinned", 1)
		w.Write([]byte(body))
	}))
	defer server.Close()

	validator := NewHTTPValidator(server.URL, server.Client())
	got, err := validator.Validate(context.Background(), schedSpec(t), "alice")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if got.Name != "sched-probe-pinned" {
		t.Errorf("Name = %q, want the scheduler-transformed name", got.Name)
	}
}

func TestHTTPValidator_RejectionPassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no cell satisfies 1 GPU in vc default", http.StatusBadRequest)
	}))
	defer server.Close()

	validator := NewHTTPValidator(server.URL, server.Client())
	_, err := validator.Validate(context.Background(), schedSpec(t), "bob")
	if !herr.IsCode(err, herr.CodeSchedulerRejected) {
		t.Fatalf("err = %v, want code %s", err, herr.CodeSchedulerRejected)
	}
	if !strings.Contains(err.Error(), "no cell satisfies") {
		t.Errorf("rejection should carry the scheduler message, got %q", err.Error())
	}
}

func TestHTTPValidator_UnreachableScheduler(t *testing.T) {
	validator := NewHTTPValidator("http://127.0.0.1:1", http.DefaultClient)
	_, err := validator.Validate(context.Background(), schedSpec(t), "carol")
	if !herr.IsCode(err, herr.CodeSchedulerRejected) {
		t.Fatalf("err = %v, want code %s", err, herr.CodeSchedulerRejected)
	}
}

func TestHTTPValidator_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("taskRoles: ["))
	}))
	defer server.Close()

	validator := NewHTTPValidator(server.URL, server.Client())
	_, err := validator.Validate(context.Background(), schedSpec(t), "dave")
	if !herr.IsCode(err, herr.CodeSchedulerRejected) {
		t.Fatalf("err = %v, want code %s", err, herr.CodeSchedulerRejected)
	}
}
