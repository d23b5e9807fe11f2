package action_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/herdctl/herd/internal/action"
	"github.com/herdctl/herd/internal/action/actionmock"
	"github.com/herdctl/herd/internal/model"
)

func TestRegistryInvoke(t *testing.T) {
	tests := map[string]struct {
		register  map[[2]string]*action.InvokeResult
		req       action.InvokeRequest
		expResult *action.InvokeResult
		expErr    bool
		expIs     error
	}{
		"Invoking a registered pair should dispatch to its handler.": {
			register: map[[2]string]*action.InvokeResult{
				{"dex", "swap"}: {Success: true, ResultToken: "0xaaa"},
			},
			req:       action.InvokeRequest{Project: "dex", Action: "swap"},
			expResult: &action.InvokeResult{Success: true, ResultToken: "0xaaa"},
		},

		"Invoking with multiple registered pairs should pick the matching one.": {
			register: map[[2]string]*action.InvokeResult{
				{"dex", "swap"}:  {Success: true, ResultToken: "0xaaa"},
				{"dex", "stake"}: {Success: true, ResultToken: "0xbbb"},
			},
			req:       action.InvokeRequest{Project: "dex", Action: "stake"},
			expResult: &action.InvokeResult{Success: true, ResultToken: "0xbbb"},
		},

		"Invoking an unregistered pair should fail with not found.": {
			register: map[[2]string]*action.InvokeResult{
				{"dex", "swap"}: {Success: true},
			},
			req:    action.InvokeRequest{Project: "dex", Action: "bridge"},
			expErr: true,
			expIs:  model.ErrNotFound,
		},

		"Matching the action name under a different project should fail with not found.": {
			register: map[[2]string]*action.InvokeResult{
				{"dex", "swap"}: {Success: true},
			},
			req:    action.InvokeRequest{Project: "lending", Action: "swap"},
			expErr: true,
			expIs:  model.ErrNotFound,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			registry := action.NewRegistry()
			mocks := []*actionmock.MockInvoker{}
			for pair, result := range test.register {
				m := &actionmock.MockInvoker{}
				m.On("Invoke", mock.Anything, mock.Anything).Return(result, nil).Maybe()
				registry.Register(pair[0], pair[1], m)
				mocks = append(mocks, m)
			}

			result, err := registry.Invoke(context.TODO(), test.req)

			if test.expErr {
				assert.Error(err)
				if test.expIs != nil {
					assert.ErrorIs(err, test.expIs)
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(test.expResult, result)
			for _, m := range mocks {
				m.AssertExpectations(t)
			}
		})
	}
}

func TestRegistryRegisterReplaces(t *testing.T) {
	assert := assert.New(t)

	first := &actionmock.MockInvoker{}
	second := &actionmock.MockInvoker{}
	second.On("Invoke", mock.Anything, mock.Anything).Return(&action.InvokeResult{Success: true, ResultToken: "0xsecond"}, nil)

	registry := action.NewRegistry()
	registry.Register("dex", "swap", first)
	registry.Register("dex", "swap", second)

	result, err := registry.Invoke(context.TODO(), action.InvokeRequest{Project: "dex", Action: "swap"})

	assert.NoError(err)
	assert.Equal("0xsecond", result.ResultToken)
	first.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything)
	second.AssertExpectations(t)
}
