package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/lotflow/lotflow/internal/config"
	"github.com/lotflow/lotflow/pkg/bpm"
	"github.com/lotflow/lotflow/pkg/bpm/runtime"
	"github.com/lotflow/lotflow/pkg/haccp"
	"github.com/lotflow/lotflow/pkg/lot"
	"github.com/lotflow/lotflow/pkg/storage/inmemory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testServer *httptest.Server

func TestMain(m *testing.M) {
	store := inmemory.NewStorage()
	engine := bpm.NewEngine(store)
	server := NewServer(&engine, haccp.NewService(store), lot.NewService(store), config.Config{})
	testServer = httptest.NewServer(server.server.Handler)

	exitCode := m.Run()

	testServer.Close()
	os.Exit(exitCode)
}

func doJSON(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, testServer.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, into interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
}

func TestDeployAndStartProcess(t *testing.T) {
	resp := doJSON(t, http.MethodPost, "/v1/process-definitions", map[string]string{
		"bpmnXml": "<process id=\"bread\"/>",
		"name":    "Bread",
		"key":     "bread-api",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var definition runtime.ProcessDefinition
	decodeBody(t, resp, &definition)
	assert.Equal(t, int32(1), definition.Version)

	resp = doJSON(t, http.MethodPost, "/v1/process-instances", map[string]interface{}{
		"definitionKey": "bread-api",
		"businessKey":   "LOT-9",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var instance runtime.ProcessInstance
	decodeBody(t, resp, &instance)
	assert.Equal(t, runtime.ProcessStatusActive, instance.Status)
	assert.Equal(t, "LOT-9", instance.BusinessKey)
}

func TestStartProcessUnknownKeyConflicts(t *testing.T) {
	resp := doJSON(t, http.MethodPost, "/v1/process-instances", map[string]string{
		"definitionKey": "never-deployed",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestUnknownInstanceIs404(t *testing.T) {
	resp := doJSON(t, http.MethodGet, "/v1/process-instances/missing", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestClaimTaskByNonCandidateIsForbidden(t *testing.T) {
	resp := doJSON(t, http.MethodPost, "/v1/tasks", map[string]string{
		"processInstanceId":   "instance-1",
		"processDefinitionId": "definition-1",
		"taskDefinitionKey":   "release",
		"name":                "Release batch",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var task runtime.Task
	decodeBody(t, resp, &task)

	resp = doJSON(t, http.MethodPost, fmt.Sprintf("/v1/tasks/%s/candidate-users", task.Id), map[string]string{"userId": "qa-lead"})
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, fmt.Sprintf("/v1/tasks/%s/claim", task.Id), map[string]string{"userId": "intruder"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCompleteUnassignedTaskConflicts(t *testing.T) {
	resp := doJSON(t, http.MethodPost, "/v1/tasks", map[string]string{
		"processInstanceId": "instance-1",
		"taskDefinitionKey": "pack",
		"name":              "Pack",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var task runtime.Task
	decodeBody(t, resp, &task)

	resp = doJSON(t, http.MethodPost, fmt.Sprintf("/v1/tasks/%s/complete", task.Id), map[string]interface{}{})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCheckpointRoundTrip(t *testing.T) {
	resp := doJSON(t, http.MethodPost, "/v1/ccp-checkpoints", map[string]interface{}{
		"processInstanceId": "instance-1",
		"activityId":        "baking",
		"spec": map[string]interface{}{
			"criticalLimits": []map[string]interface{}{{
				"parameter": "temp",
				"unit":      "C",
				"minValue":  180,
				"maxValue":  200,
				"operator":  "BETWEEN",
			}},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var checkpoint haccp.Checkpoint
	decodeBody(t, resp, &checkpoint)
	assert.Equal(t, haccp.CheckpointPending, checkpoint.Status)

	resp = doJSON(t, http.MethodPost, fmt.Sprintf("/v1/ccp-checkpoints/%s/complete", checkpoint.Id), map[string]interface{}{
		"measurements": []map[string]interface{}{{"parameter": "temp", "value": 210, "unit": "C"}},
		"userId":       "baker-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result haccp.CheckResult
	decodeBody(t, resp, &result)
	assert.False(t, result.Passed)
	require.Len(t, result.Deviations, 1)
	assert.Equal(t, haccp.SeverityMedium, result.Deviations[0].Severity)

	resp = doJSON(t, http.MethodPost, "/v1/ccp-checkpoints/missing/complete", map[string]interface{}{})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLotRecallEndpoint(t *testing.T) {
	createLot := func(productId string) lot.Lot {
		resp := doJSON(t, http.MethodPost, "/v1/lots", map[string]interface{}{
			"productId":         productId,
			"productName":       productId,
			"processInstanceId": "instance-1",
			"quantity":          100,
			"unit":              "kg",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		var created lot.Lot
		decodeBody(t, resp, &created)
		return created
	}

	parent := createLot("FLOUR")
	child := createLot("BREAD")

	resp := doJSON(t, http.MethodPost, fmt.Sprintf("/v1/lots/%s/links", child.Id), map[string]string{
		"parentLotNumber": parent.LotNumber,
	})
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, fmt.Sprintf("/v1/lots/number/%s/recall", parent.LotNumber), map[string]string{
		"reason": "allergen mislabeling",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result lot.RecallResult
	decodeBody(t, resp, &result)
	require.Len(t, result.Recalled, 2)
	assert.Equal(t, lot.StatusRecalled, result.Recalled[0].Status)
	assert.Equal(t, lot.StatusRecalled, result.Recalled[1].Status)
}
