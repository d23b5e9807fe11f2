package taskstart_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/herdctl/herd/internal/app/taskstart"
	"github.com/herdctl/herd/internal/model"
	"github.com/herdctl/herd/internal/storage/storagemock"
)

type runnerMock struct {
	mock.Mock
}

func (m *runnerMock) Run(ctx context.Context, taskID string) error {
	return m.Called(ctx, taskID).Error(0)
}

func TestServiceRun(t *testing.T) {
	endedAt := time.Now().UTC()

	task := func(status model.TaskStatus) *model.Task {
		t := &model.Task{
			ID:     "task1",
			Name:   "test-task",
			Status: status,
			Config: model.TaskConfig{
				Project:     "zksync",
				WalletGroup: "main",
				Actions:     []string{"swap"},
				WorkerCount: 1,
			},
		}
		if status == model.TaskStatusCompleted || status == model.TaskStatusFailed || status == model.TaskStatusCancelled {
			t.Progress = 42
			t.LastWalletIndex = 3
			t.EndedAt = &endedAt
		}
		return t
	}

	tests := map[string]struct {
		req       taskstart.Request
		mock      func(mtr *storagemock.MockTaskRepository, mrr *storagemock.MockRecordRepository, mr *runnerMock)
		expErr    bool
		expStatus model.TaskStatus
	}{
		"Starting a pending task should run it.": {
			req: taskstart.Request{TaskID: "task1"},
			mock: func(mtr *storagemock.MockTaskRepository, mrr *storagemock.MockRecordRepository, mr *runnerMock) {
				mtr.On("GetTask", mock.Anything, "task1").Once().Return(task(model.TaskStatusPending), nil)
				mtr.On("UpdateTask", mock.Anything, mock.MatchedBy(func(t model.Task) bool {
					return t.Status == model.TaskStatusRunning && t.StartedAt != nil
				})).Once().Return(nil)
				mr.On("Run", mock.Anything, "task1").Once().Return(nil)
			},
			expStatus: model.TaskStatusRunning,
		},

		"Resuming a paused task should run it without clearing records.": {
			req: taskstart.Request{TaskID: "task1"},
			mock: func(mtr *storagemock.MockTaskRepository, mrr *storagemock.MockRecordRepository, mr *runnerMock) {
				mtr.On("GetTask", mock.Anything, "task1").Once().Return(task(model.TaskStatusPaused), nil)
				mtr.On("UpdateTask", mock.Anything, mock.Anything).Once().Return(nil)
				mr.On("Run", mock.Anything, "task1").Once().Return(nil)
			},
			expStatus: model.TaskStatusRunning,
		},

		"Starting an already running task should fail.": {
			req: taskstart.Request{TaskID: "task1"},
			mock: func(mtr *storagemock.MockTaskRepository, mrr *storagemock.MockRecordRepository, mr *runnerMock) {
				mtr.On("GetTask", mock.Anything, "task1").Once().Return(task(model.TaskStatusRunning), nil)
			},
			expErr: true,
		},

		"Starting a completed task without restart should be a no-op.": {
			req: taskstart.Request{TaskID: "task1"},
			mock: func(mtr *storagemock.MockTaskRepository, mrr *storagemock.MockRecordRepository, mr *runnerMock) {
				mtr.On("GetTask", mock.Anything, "task1").Once().Return(task(model.TaskStatusCompleted), nil)
			},
			expStatus: model.TaskStatusCompleted,
		},

		"Restarting a completed task should clear records and run from scratch.": {
			req: taskstart.Request{TaskID: "task1", Restart: true},
			mock: func(mtr *storagemock.MockTaskRepository, mrr *storagemock.MockRecordRepository, mr *runnerMock) {
				mtr.On("GetTask", mock.Anything, "task1").Once().Return(task(model.TaskStatusCompleted), nil)
				mrr.On("ClearRecords", mock.Anything, "task1").Once().Return(nil)
				mtr.On("UpdateTask", mock.Anything, mock.MatchedBy(func(t model.Task) bool {
					return t.Status == model.TaskStatusRunning &&
						t.Progress == 0 &&
						t.LastWalletIndex == 0 &&
						t.EndedAt == nil
				})).Once().Return(nil)
				mr.On("Run", mock.Anything, "task1").Once().Return(nil)
			},
			expStatus: model.TaskStatusRunning,
		},

		"Starting a failed task without restart should fail.": {
			req: taskstart.Request{TaskID: "task1"},
			mock: func(mtr *storagemock.MockTaskRepository, mrr *storagemock.MockRecordRepository, mr *runnerMock) {
				mtr.On("GetTask", mock.Anything, "task1").Once().Return(task(model.TaskStatusFailed), nil)
			},
			expErr: true,
		},

		"Restarting a failed task should clear records and run.": {
			req: taskstart.Request{TaskID: "task1", Restart: true},
			mock: func(mtr *storagemock.MockTaskRepository, mrr *storagemock.MockRecordRepository, mr *runnerMock) {
				mtr.On("GetTask", mock.Anything, "task1").Once().Return(task(model.TaskStatusFailed), nil)
				mrr.On("ClearRecords", mock.Anything, "task1").Once().Return(nil)
				mtr.On("UpdateTask", mock.Anything, mock.Anything).Once().Return(nil)
				mr.On("Run", mock.Anything, "task1").Once().Return(nil)
			},
			expStatus: model.TaskStatusRunning,
		},

		"Starting a stopped task should always run from scratch.": {
			req: taskstart.Request{TaskID: "task1"},
			mock: func(mtr *storagemock.MockTaskRepository, mrr *storagemock.MockRecordRepository, mr *runnerMock) {
				mtr.On("GetTask", mock.Anything, "task1").Once().Return(task(model.TaskStatusCancelled), nil)
				mrr.On("ClearRecords", mock.Anything, "task1").Once().Return(nil)
				mtr.On("UpdateTask", mock.Anything, mock.MatchedBy(func(t model.Task) bool {
					return t.Status == model.TaskStatusRunning && t.Progress == 0 && t.EndedAt == nil
				})).Once().Return(nil)
				mr.On("Run", mock.Anything, "task1").Once().Return(nil)
			},
			expStatus: model.TaskStatusRunning,
		},

		"A missing task should fail with not found.": {
			req: taskstart.Request{TaskID: "ghost"},
			mock: func(mtr *storagemock.MockTaskRepository, mrr *storagemock.MockRecordRepository, mr *runnerMock) {
				mtr.On("GetTask", mock.Anything, "ghost").Once().Return(nil, model.ErrNotFound)
			},
			expErr: true,
		},

		"A record clearing error should abort the restart.": {
			req: taskstart.Request{TaskID: "task1", Restart: true},
			mock: func(mtr *storagemock.MockTaskRepository, mrr *storagemock.MockRecordRepository, mr *runnerMock) {
				mtr.On("GetTask", mock.Anything, "task1").Once().Return(task(model.TaskStatusFailed), nil)
				mrr.On("ClearRecords", mock.Anything, "task1").Once().Return(errors.New("whatever"))
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			mtr := &storagemock.MockTaskRepository{}
			mrr := &storagemock.MockRecordRepository{}
			mr := &runnerMock{}
			test.mock(mtr, mrr, mr)

			svc, err := taskstart.NewService(taskstart.ServiceConfig{
				TaskRepo:   mtr,
				RecordRepo: mrr,
				Runner:     mr,
			})
			require.NoError(err)

			result, err := svc.Run(context.TODO(), test.req)

			if test.expErr {
				assert.Error(err)
			} else if assert.NoError(err) {
				assert.Equal(test.expStatus, result.Task.Status)

				// Wait for the background run so the runner expectations are
				// checkable.
				select {
				case runErr := <-result.Done:
					assert.NoError(runErr)
				case <-time.After(time.Second):
					t.Fatal("background run never finished")
				}
			}

			mtr.AssertExpectations(t)
			mrr.AssertExpectations(t)
			mr.AssertExpectations(t)
		})
	}
}
