package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"a2a-support-desk/internal/a2a"
	"a2a-support-desk/internal/metrics"
	"a2a-support-desk/internal/task"
	"a2a-support-desk/internal/worker"
)

const (
	DefaultMaxAttempts  = 10
	DefaultPollInterval = 2 * time.Second
)

// Outcome describes how a delegation ended.
type Outcome string

const (
	OutcomeAnswered    Outcome = "answered"
	OutcomeEmpty       Outcome = "empty"
	OutcomeExhausted   Outcome = "exhausted"
	OutcomeUnavailable Outcome = "unavailable"
	OutcomeFailed      Outcome = "failed"
)

// DelegationResult summarises one delegation.
type DelegationResult struct {
	Outcome      Outcome
	Polls        int
	RemoteTaskID string
}

// roleProfile holds the user-facing wording for one specialist role.
type roleProfile struct {
	title       string
	subject     string
	agent       string
	service     string
	information string
}

var profiles = map[string]roleProfile{
	"product":  {title: "제품 정보 요청", subject: "제품", agent: "제품", service: "제품 정보 서비스", information: "제품 정보"},
	"shipping": {title: "배송 정보 요청", subject: "배송", agent: "배송", service: "배송 서비스", information: "배송 정보"},
	"billing":  {title: "결제 정보 요청", subject: "결제", agent: "청구", service: "결제 정보 서비스", information: "결제 정보"},
}

func profileFor(role string) roleProfile {
	if p, ok := profiles[role]; ok {
		return p
	}
	return roleProfile{title: role + " 요청", subject: role, agent: role, service: role + " 서비스", information: role + " 정보"}
}

func (p roleProfile) waitMessage() string {
	return fmt.Sprintf("%s 전문가에게 문의를 전달했습니다. 잠시만 기다려주세요...", p.subject)
}

func (p roleProfile) unavailableMessage() string {
	return fmt.Sprintf("죄송합니다. %s에 일시적인 문제가 발생했습니다. 나중에 다시 시도해주세요.", p.service)
}

func (p roleProfile) failedMessage() string {
	return fmt.Sprintf("죄송합니다. %s를 가져오는 중 문제가 발생했습니다. 잠시 후 다시 시도해주세요.", p.information)
}

func (p roleProfile) noContentMessage() string {
	return fmt.Sprintf("%s 에이전트가 응답을 완료했지만 메시지 내용이 없습니다.", p.agent)
}

func (p roleProfile) noResponseMessage() string {
	return fmt.Sprintf("%s 에이전트로부터 응답을 받지 못했습니다. 잠시 후 다시 시도해주세요.", p.agent)
}

// Delegator hands a local task over to a specialist agent and relays the
// specialist's answer back by polling the remote task.
type Delegator struct {
	client       *a2a.Client
	store        *task.Store
	addresses    map[string]string
	maxAttempts  int
	pollInterval time.Duration
	supervisor   *worker.Supervisor
	logger       *zap.Logger
	metrics      *metrics.Collector
}

// DelegatorOption configures a Delegator.
type DelegatorOption func(*Delegator)

// WithPolling sets the poll budget. Non-positive values keep the defaults.
func WithPolling(maxAttempts int, interval time.Duration) DelegatorOption {
	return func(d *Delegator) {
		if maxAttempts > 0 {
			d.maxAttempts = maxAttempts
		}
		if interval > 0 {
			d.pollInterval = interval
		}
	}
}

// WithSupervisor lets Start run the polling phase as a supervised job.
func WithSupervisor(s *worker.Supervisor) DelegatorOption {
	return func(d *Delegator) { d.supervisor = s }
}

// WithDelegatorLogger sets the logger.
func WithDelegatorLogger(l *zap.Logger) DelegatorOption {
	return func(d *Delegator) { d.logger = l }
}

// WithDelegatorMetrics records delegation counters on m.
func WithDelegatorMetrics(m *metrics.Collector) DelegatorOption {
	return func(d *Delegator) { d.metrics = m }
}

// NewDelegator creates a delegator. addresses maps a role key to the base
// address its card is discovered from when the role is not registered yet.
func NewDelegator(client *a2a.Client, store *task.Store, addresses map[string]string, opts ...DelegatorOption) *Delegator {
	d := &Delegator{
		client:       client,
		store:        store,
		addresses:    addresses,
		maxAttempts:  DefaultMaxAttempts,
		pollInterval: DefaultPollInterval,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With(zap.String("component", "delegator"))
	return d
}

// handoff is a delegated remote task waiting to be polled.
type handoff struct {
	localTaskID  string
	role         string
	remoteTaskID string
	profile      roleProfile
}

// Delegate runs the whole delegation inline: resolve the role, create the
// remote task, then poll it until it answers or the budget runs out. Remote
// failures are reported to the user as messages on the local task; the
// returned error is only set when the local task itself cannot be updated.
func (d *Delegator) Delegate(ctx context.Context, localTaskID, role, query string) (DelegationResult, error) {
	h, res, err := d.start(ctx, localTaskID, role, query)
	if err != nil || h == nil {
		return res, err
	}
	return d.poll(ctx, h)
}

// Start performs the handoff inline so the user sees the interim message
// right away, then polls in a supervised background job. Without a
// supervisor it behaves like Delegate and returns a nil job.
func (d *Delegator) Start(ctx context.Context, localTaskID, role, query string) (*worker.Job, error) {
	if d.supervisor == nil {
		_, err := d.Delegate(ctx, localTaskID, role, query)
		return nil, err
	}

	h, _, err := d.start(ctx, localTaskID, role, query)
	if err != nil || h == nil {
		return nil, err
	}
	job := d.supervisor.Go(ctx, "delegation_poll", func(ctx context.Context) error {
		_, err := d.poll(ctx, h)
		return err
	})
	return job, nil
}

func (d *Delegator) start(ctx context.Context, localTaskID, role, query string) (*handoff, DelegationResult, error) {
	p := profileFor(role)
	logger := d.logger.With(zap.String("task_id", localTaskID), zap.String("role", role))

	if err := d.resolve(ctx, role); err != nil {
		logger.Warn("specialist unavailable", zap.Error(err))
		res := DelegationResult{Outcome: OutcomeUnavailable}
		return nil, res, d.finish(ctx, localTaskID, role, res, p.unavailableMessage())
	}

	remote, err := d.client.CreateTask(ctx, role, p.title, query, map[string]any{
		"original_task_id": localTaskID,
	})
	if err != nil {
		logger.Error("failed to create remote task", zap.Error(err))
		res := DelegationResult{Outcome: OutcomeFailed}
		return nil, res, d.finish(ctx, localTaskID, role, res, p.failedMessage())
	}
	logger.Info("delegated", zap.String("remote_task_id", remote.ID))

	if err := d.reply(ctx, localTaskID, p.waitMessage()); err != nil {
		return nil, DelegationResult{Outcome: OutcomeFailed, RemoteTaskID: remote.ID}, err
	}
	return &handoff{localTaskID: localTaskID, role: role, remoteTaskID: remote.ID, profile: p}, DelegationResult{}, nil
}

// resolve makes sure role is registered, discovering it once if needed.
func (d *Delegator) resolve(ctx context.Context, role string) error {
	if _, err := d.client.Registry().Lookup(role); err == nil {
		return nil
	}
	address, ok := d.addresses[role]
	if !ok || address == "" {
		return fmt.Errorf("no address configured for role %q: %w", role, a2a.ErrUnknownAgent)
	}
	card, err := d.client.Discover(ctx, address)
	if err != nil {
		return err
	}
	d.client.Registry().Register(role, card)
	return nil
}

func (d *Delegator) poll(ctx context.Context, h *handoff) (DelegationResult, error) {
	logger := d.logger.With(
		zap.String("task_id", h.localTaskID),
		zap.String("role", h.role),
		zap.String("remote_task_id", h.remoteTaskID),
	)
	res := DelegationResult{Outcome: OutcomeExhausted, RemoteTaskID: h.remoteTaskID}

	timer := time.NewTimer(d.pollInterval)
	defer timer.Stop()

	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		if attempt > 1 {
			timer.Reset(d.pollInterval)
		}
		select {
		case <-ctx.Done():
			logger.Warn("delegation interrupted", zap.Int("polls", res.Polls), zap.Error(ctx.Err()))
			return res, d.finish(ctx, h.localTaskID, h.role, res, h.profile.noResponseMessage())
		case <-timer.C:
		}

		res.Polls++
		remote, err := d.client.GetTaskStatus(ctx, h.role, h.remoteTaskID)
		if err != nil {
			d.metrics.RecordPoll(h.role, "error")
			logger.Warn("poll failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		logger.Debug("polled",
			zap.Int("attempt", attempt),
			zap.String("status", string(remote.Status)),
			zap.Int("messages", len(remote.Messages)),
		)

		if msg, ok := remote.FirstNonEmpty(); ok {
			d.metrics.RecordPoll(h.role, "answered")
			res.Outcome = OutcomeAnswered
			return res, d.finish(ctx, h.localTaskID, h.role, res, msg.Content.String())
		}
		if len(remote.Messages) > 0 && remote.Status == task.StatusCompleted {
			d.metrics.RecordPoll(h.role, "empty")
			res.Outcome = OutcomeEmpty
			return res, d.finish(ctx, h.localTaskID, h.role, res, h.profile.noContentMessage())
		}
		d.metrics.RecordPoll(h.role, "pending")
	}

	logger.Warn("no response from specialist", zap.Int("polls", res.Polls))
	return res, d.finish(ctx, h.localTaskID, h.role, res, h.profile.noResponseMessage())
}

// finish appends the final message for a delegation and hands the task
// back to the user.
func (d *Delegator) finish(ctx context.Context, localTaskID, role string, res DelegationResult, text string) error {
	d.metrics.RecordDelegation(role, string(res.Outcome))
	_, err := d.store.Update(ctx, localTaskID, func(t *task.Task) error {
		if t.Status.Terminal() {
			return nil
		}
		t.AddText(task.RoleAgent, text)
		if task.CanTransition(t.Status, task.StatusWaitingForInput) {
			return t.SetStatus(task.StatusWaitingForInput)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record delegation result on task %s: %w", localTaskID, err)
	}
	return nil
}

// reply appends an agent message without touching the status.
func (d *Delegator) reply(ctx context.Context, localTaskID, text string) error {
	_, err := d.store.Update(ctx, localTaskID, func(t *task.Task) error {
		if t.Status.Terminal() {
			return errTaskClosed
		}
		t.AddText(task.RoleAgent, text)
		return nil
	})
	if errors.Is(err, errTaskClosed) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to reply on task %s: %w", localTaskID, err)
	}
	return nil
}

var errTaskClosed = errors.New("task is closed")
