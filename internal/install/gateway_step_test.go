package install

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/agent-matrix/matrix-hub/internal/install/mocks"
	"github.com/agent-matrix/matrix-hub/internal/manifest"
)

func planWithGatewayRegistration(target string) *Plan {
	return &Plan{
		UID:             "tool:widget@1.0.0",
		Target:          target,
		MCPRegistration: &manifest.MCPRegistration{Tool: []byte(`{"name":"widget"}`)},
	}
}

func TestExecute_GatewayStepSucceedsAndRecordsLockRegistrations(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGatewayInstaller(ctrl)

	plan := planWithGatewayRegistration(t.TempDir())
	gw.EXPECT().
		Register(gomock.Any(), plan.UID, plan).
		Return([]LockGatewayReg{{Kind: "tool", Name: "widget", ID: float64(7)}}, nil)

	exec := NewExecutor(WithGateway(gw))
	result, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)

	require.NotEmpty(t, result.Results)
	last := result.Results[len(result.Results)-1]
	assert.Equal(t, "gateway", last.Step)
	assert.True(t, last.OK)

	lf := readLockfile(plan.Target)
	require.NotNil(t, lf)
	require.Len(t, lf.Entities, 1)
	require.Len(t, lf.Entities[0].GatewayRegistrations, 1)
	assert.Equal(t, "widget", lf.Entities[0].GatewayRegistrations[0].Name)
}

func TestExecute_GatewayStepFailureIsRecordedButNonFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGatewayInstaller(ctrl)

	plan := planWithGatewayRegistration(t.TempDir())
	gw.EXPECT().
		Register(gomock.Any(), plan.UID, plan).
		Return(nil, errors.New("gateway unreachable"))

	exec := NewExecutor(WithGateway(gw))
	result, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)

	last := result.Results[len(result.Results)-1]
	assert.Equal(t, "gateway", last.Step)
	assert.False(t, last.OK)
	assert.Contains(t, last.StderrExcerpt, "gateway unreachable")
}
