// Package engine implements the workflow execution engine: a bounded
// queue, a dispatcher goroutine, and one independent execution task per
// enqueued workflow (spec.md §4.6).
package engine

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/alertflow/operator/pkg/executor"
	"github.com/alertflow/operator/pkg/metrics"
	"github.com/alertflow/operator/pkg/shared/errors"
	"github.com/alertflow/operator/pkg/shared/logging"
	"github.com/alertflow/operator/pkg/storage"
	"github.com/alertflow/operator/pkg/types"
)

// QueueCapacity bounds how many workflows may be pending dispatch at
// once.
const QueueCapacity = 100

// Engine owns the workflow queue and the table of in-flight executions.
type Engine struct {
	queue    chan enqueueRequest
	executor *executor.Executor
	store    storage.Store
	logger   *logrus.Logger

	mu    sync.RWMutex
	table map[string]*types.WorkflowExecution

	stop chan struct{}
	done chan struct{}
}

type enqueueRequest struct {
	workflow   *types.Workflow
	annotation map[string]string
}

// New builds an Engine and starts its dispatcher goroutine.
func New(exec *executor.Executor, store storage.Store, logger *logrus.Logger) *Engine {
	e := &Engine{
		queue:    make(chan enqueueRequest, QueueCapacity),
		executor: exec,
		store:    store,
		logger:   logger,
		table:    make(map[string]*types.WorkflowExecution),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go e.dispatch()
	return e
}

// Shutdown stops the dispatcher. In-flight execution tasks already
// spawned are not cancelled.
func (e *Engine) Shutdown() {
	close(e.stop)
	<-e.done
}

// Enqueue submits wf for execution, annotated with source/alert
// metadata per spec.md §4.7. It returns an internal error if the queue
// is full.
func (e *Engine) Enqueue(wf *types.Workflow, annotations map[string]string) error {
	select {
	case e.queue <- enqueueRequest{workflow: wf, annotation: annotations}:
		metrics.QueueDepth.Set(float64(len(e.queue)))
		return nil
	default:
		return errors.FailedTo("enqueue workflow", fmt.Errorf("queue capacity (%d) exceeded", QueueCapacity))
	}
}

func (e *Engine) dispatch() {
	defer close(e.done)
	for {
		select {
		case <-e.stop:
			return
		case req := <-e.queue:
			metrics.QueueDepth.Set(float64(len(e.queue)))
			executionID := uuid.New().String()
			go e.run(context.Background(), executionID, req.workflow, req.annotation)
		}
	}
}

// run drives one workflow execution end-to-end, persisting its start
// record, each step change and the final state as it goes. Outputs are
// kept on the in-memory execution only.
func (e *Engine) run(ctx context.Context, executionID string, wf *types.Workflow, annotations map[string]string) {
	wfCtx := buildInitialContext(wf, executionID, annotations)

	exec := &types.WorkflowExecution{
		ExecutionID: executionID,
		Workflow:    wf,
		State:       types.ExecutionRunning,
		Context:     wfCtx,
		Outputs:     map[string]interface{}{},
		TotalSteps:  len(wf.Steps),
		CreatedAt:   time.Now(),
		StartedAt:   time.Now(),
	}
	e.put(exec)
	e.persistStart(ctx, exec)

	stepOutputs := map[string]interface{}{}

	for _, step := range wf.Steps {
		wfCtx.SetCurrentStep(step.Name)
		e.persistProgress(ctx, exec)

		stepStart := time.Now()
		out, err := e.executor.Execute(ctx, wf, step, wfCtx)
		metrics.WorkflowStepDuration.WithLabelValues(string(step.Kind)).Observe(time.Since(stepStart).Seconds())
		if err != nil || (out != nil && out["success"] == false) {
			errMsg := ""
			if err != nil {
				errMsg = err.Error()
			} else if v, ok := out["error"].(string); ok {
				errMsg = v
			}
			e.fail(ctx, exec, step.Name, errMsg, stepOutputs)
			return
		}

		if out != nil && out["pending_approval"] == true {
			wfCtx.SetStepOutput(step.Name, out)
			stepOutputs[step.Name] = out
			e.pause(ctx, exec, step.Name, stepOutputs)
			return
		}

		wfCtx.SetStepOutput(step.Name, out)
		stepOutputs[step.Name] = out
		e.markStepCompleted(exec)
	}

	e.succeed(ctx, exec, stepOutputs)
}

func (e *Engine) put(exec *types.WorkflowExecution) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.table[exec.ExecutionID] = exec
}

func (e *Engine) markStepCompleted(exec *types.WorkflowExecution) {
	e.mu.Lock()
	defer e.mu.Unlock()
	exec.StepsCompleted++
}

func (e *Engine) fail(ctx context.Context, exec *types.WorkflowExecution, failedStep, errMsg string, partial map[string]interface{}) {
	e.mu.Lock()
	exec.State = types.ExecutionFailed
	exec.FailedStep = failedStep
	exec.Error = errMsg
	exec.CompletedAt = time.Now()
	exec.Outputs = map[string]interface{}{"error": errMsg, "failed_step": failedStep, "outputs": partial}
	e.mu.Unlock()

	if e.logger != nil {
		e.logger.WithFields(logging.NewFields().
			Component("workflow.engine").
			Operation("run").
			Custom("execution_id", exec.ExecutionID).
			Custom("failed_step", failedStep).
			Error(stderrors.New(errMsg)).ToLogrus()).
			Error("workflow execution failed")
	}
	if e.store != nil {
		if perr := e.store.UpdateWorkflowStatus(ctx, exec.ExecutionID, string(types.ExecutionFailed), errMsg); perr != nil && e.logger != nil {
			e.logger.WithError(perr).Warn("failed to persist workflow failure")
		}
	}
	metrics.WorkflowExecutionsTotal.WithLabelValues(string(types.ExecutionFailed)).Inc()
}

// pause halts a workflow at a step whose agent investigation emitted a
// PendingHumanApproval (spec.md §4.4): the execution is parked in
// ExecutionPendingApproval (persisted to the store) with its outputs so
// far recorded on the in-memory execution, and no further step is
// started. Resuming it is out of this engine's scope
// (see DESIGN.md's Investigator.Resume entry).
func (e *Engine) pause(ctx context.Context, exec *types.WorkflowExecution, stepName string, partial map[string]interface{}) {
	e.mu.Lock()
	exec.State = types.ExecutionPendingApproval
	exec.Outputs = map[string]interface{}{"paused_step": stepName, "outputs": partial}
	e.mu.Unlock()

	if e.store != nil {
		if perr := e.store.UpdateWorkflowStatus(ctx, exec.ExecutionID, string(types.ExecutionPendingApproval), ""); perr != nil && e.logger != nil {
			e.logger.WithError(perr).Warn("failed to persist workflow pause")
		}
	}
	if e.logger != nil {
		e.logger.WithFields(logging.NewFields().
			Component("workflow.engine").
			Operation("run").
			Custom("execution_id", exec.ExecutionID).
			Custom("paused_step", stepName).ToLogrus()).
			Info("workflow execution paused for human approval")
	}
	metrics.WorkflowExecutionsTotal.WithLabelValues(string(types.ExecutionPendingApproval)).Inc()
}

func (e *Engine) succeed(ctx context.Context, exec *types.WorkflowExecution, stepOutputs map[string]interface{}) {
	e.mu.Lock()
	exec.State = types.ExecutionSucceeded
	exec.CompletedAt = time.Now()
	exec.Outputs = map[string]interface{}{"steps": stepOutputs}
	e.mu.Unlock()

	if e.store != nil {
		if perr := e.store.UpdateWorkflowStatus(ctx, exec.ExecutionID, string(types.ExecutionSucceeded), ""); perr != nil && e.logger != nil {
			e.logger.WithError(perr).Warn("failed to persist workflow success")
		}
	}
	metrics.WorkflowExecutionsTotal.WithLabelValues(string(types.ExecutionSucceeded)).Inc()
}

func (e *Engine) persistStart(ctx context.Context, exec *types.WorkflowExecution) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveWorkflow(ctx, exec); err != nil && e.logger != nil {
		e.logger.WithError(err).Warn("failed to persist workflow start")
	}
}

func (e *Engine) persistProgress(ctx context.Context, exec *types.WorkflowExecution) {
	if e.store == nil {
		return
	}
	if err := e.store.UpdateWorkflowProgress(ctx, exec.ExecutionID, exec.Context.CurrentStepSnapshot()); err != nil && e.logger != nil {
		e.logger.WithError(err).Warn("failed to persist workflow progress")
	}
}

// Status returns the current lifecycle state of execution.
func (e *Engine) Status(executionID string) (types.ExecutionState, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	exec, ok := e.table[executionID]
	if !ok {
		return "", false
	}
	return exec.State, true
}

// Progress returns the current step name and state of execution.
func (e *Engine) Progress(executionID string) (currentStep string, state types.ExecutionState, ok bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	exec, found := e.table[executionID]
	if !found {
		return "", "", false
	}
	return exec.Context.CurrentStepSnapshot(), exec.State, true
}

// Outputs returns the final or partial outputs recorded for execution.
func (e *Engine) Outputs(executionID string) (map[string]interface{}, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	exec, ok := e.table[executionID]
	if !ok {
		return nil, false
	}
	return exec.Outputs, true
}

// buildInitialContext seeds metadata with the runtime image, LLM
// config, and env_-prefixed environment variables, then merges any
// source/alert annotations (spec.md §4.6 step 1).
func buildInitialContext(wf *types.Workflow, executionID string, annotations map[string]string) *types.WorkflowContext {
	ctx := types.NewWorkflowContext(map[string]interface{}{})
	ctx.SetMetadata("execution_id", executionID)
	ctx.SetMetadata("runtime_image", wf.Runtime.Image)
	ctx.SetMetadata("llm_config", wf.Runtime.LLMConfig)
	for k, v := range wf.Runtime.Env {
		ctx.SetMetadata("env_"+k, v)
	}

	for k, v := range annotations {
		switch k {
		case "alert.id":
			ctx.SetMetadata("alert_id", v)
		case "alert.name":
			ctx.SetMetadata("alert_name", v)
		case "alert.severity":
			ctx.SetMetadata("severity", v)
		case "source.data":
			var parsed map[string]interface{}
			if err := json.Unmarshal([]byte(v), &parsed); err == nil {
				ctx.Input["source"] = map[string]interface{}{"data": parsed}
			}
		}
	}
	return ctx
}
