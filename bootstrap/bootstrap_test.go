package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"testing"
	"time"

	"meshup"
	"meshup/config"
	"meshup/internal/runlog"
)

type fakeLinks struct {
	appearAfter int // Exists calls answering false before the interface shows up
	exists      int
	upCalls     int
	upErr       error
	addrs       []netip.Prefix
	addrErr     error
}

func (l *fakeLinks) Exists(context.Context, string) (bool, error) {
	l.exists++
	return l.exists > l.appearAfter, nil
}

func (l *fakeLinks) Up(context.Context, string) error {
	l.upCalls++
	return l.upErr
}

func (l *fakeLinks) Addresses(context.Context, string) ([]netip.Prefix, error) {
	return l.addrs, l.addrErr
}

type fakeRadio struct {
	calls int
	err   error
}

func (r *fakeRadio) Unblock(context.Context) error {
	r.calls++
	return r.err
}

type fakeLeases struct {
	stops, releases, acquires int

	stopErr         error
	releaseErr      error
	acquireFailures int // initial Acquire calls that fail
}

func (f *fakeLeases) Stop(context.Context, string) error {
	f.stops++
	return f.stopErr
}

func (f *fakeLeases) Release(context.Context, string) error {
	f.releases++
	return f.releaseErr
}

func (f *fakeLeases) Acquire(context.Context, string) error {
	f.acquires++
	if f.acquires <= f.acquireFailures {
		return errors.New("no offers received")
	}
	return nil
}

type fakeResolver struct {
	pins     int
	iface    string
	addr     netip.Addr
	fallback bool
	err      error
}

func (r *fakeResolver) Pin(_ context.Context, iface string, addr netip.Addr) (bool, error) {
	r.pins++
	r.iface, r.addr = iface, addr
	if r.err != nil {
		return false, r.err
	}
	return r.fallback, nil
}

type fakePinger struct {
	unreachable map[netip.Addr]bool
	calls       []netip.Addr
}

func (p *fakePinger) Ping(_ context.Context, addr netip.Addr, _ time.Duration) error {
	p.calls = append(p.calls, addr)
	if p.unreachable[addr] {
		return fmt.Errorf("ping %s: no reply", addr)
	}
	return nil
}

type fakeTimeSyncer struct {
	steps, bursts, trackings, offsets int
	stepErr, burstErr, trackErr       error
	offsetErr                         error
	tracking                          string
	offset                            time.Duration
}

func (t *fakeTimeSyncer) Step(context.Context) error {
	t.steps++
	return t.stepErr
}

func (t *fakeTimeSyncer) Burst(context.Context) error {
	t.bursts++
	return t.burstErr
}

func (t *fakeTimeSyncer) Tracking(context.Context) (string, error) {
	t.trackings++
	if t.trackErr != nil {
		return "", t.trackErr
	}
	return t.tracking, nil
}

func (t *fakeTimeSyncer) Offset(string) (time.Duration, error) {
	t.offsets++
	if t.offsetErr != nil {
		return 0, t.offsetErr
	}
	return t.offset, nil
}

type seqFakes struct {
	links  *fakeLinks
	radio  *fakeRadio
	leases *fakeLeases
	res    *fakeResolver
	ping   *fakePinger
	ts     *fakeTimeSyncer
	log    *bytes.Buffer
}

func newFakes() *seqFakes {
	return &seqFakes{
		links:  &fakeLinks{addrs: []netip.Prefix{netip.MustParsePrefix("10.42.0.77/16")}},
		radio:  &fakeRadio{},
		leases: &fakeLeases{},
		res:    &fakeResolver{},
		ping:   &fakePinger{unreachable: map[netip.Addr]bool{}},
		ts:     &fakeTimeSyncer{tracking: "Reference ID    : 0A2A001E (10.42.0.30)\nStratum         : 3\n"},
		log:    &bytes.Buffer{},
	}
}

func testConfig(t *testing.T) config.Node {
	t.Helper()
	cfg, err := config.NormalizeNode(config.Node{
		MeshInterface: "wlan0",
		Supervisor:    "10.42.0.30",
		InterfaceWait: config.Retry{Attempts: 10, Delay: config.Duration(time.Millisecond)},
		Dhcp:          config.Retry{Attempts: 10, Delay: config.Duration(time.Millisecond)},
		Ping:          config.Retry{Attempts: 3, Delay: config.Duration(time.Millisecond)},
		PingTimeout:   config.Duration(time.Millisecond),
	})
	if err != nil {
		t.Fatalf("NormalizeNode: %v", err)
	}
	return cfg
}

func (f *seqFakes) sequencer(t *testing.T) *Sequencer {
	t.Helper()
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return New(testConfig(t),
		WithLinks(f.links),
		WithRadio(f.radio),
		WithLeases(f.leases),
		WithResolver(f.res),
		WithPinger(f.ping),
		WithTimeSyncer(f.ts),
		WithRunLog(runlog.New(f.log, func() time.Time { return fixed })),
		WithClock(func() time.Time { return fixed }),
	)
}

func stageNames(run *meshup.Run) []string {
	names := make([]string, len(run.Stages))
	for i, s := range run.Stages {
		names[i] = s.Stage
	}
	return names
}

func TestRunAllStagesSucceed(t *testing.T) {
	f := newFakes()
	seq := f.sequencer(t)
	run := seq.Run(context.Background())

	if run.Status != meshup.StatusSuccess {
		t.Fatalf("Status = %v, want success\nlog:\n%s", run.Status, f.log)
	}

	want := []string{
		StageRadioUnblock, StageInterfaceWait, StageInterfaceUp,
		StageStaleClient, StageDhcpAcquire, StageDnsPin,
		StageSupervisorReach, StageTimeSync, StageInternetCheck,
	}
	got := stageNames(run)
	if len(got) != len(want) {
		t.Fatalf("stages = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("stage[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if f.radio.calls != 1 || f.links.upCalls != 1 || f.leases.stops != 1 {
		t.Errorf("radio=%d up=%d stops=%d, want 1 each", f.radio.calls, f.links.upCalls, f.leases.stops)
	}
	if f.leases.releases != 1 || f.leases.acquires != 1 {
		t.Errorf("releases=%d acquires=%d, want 1 each", f.leases.releases, f.leases.acquires)
	}
	if f.res.iface != "wlan0" || f.res.addr != netip.MustParseAddr("10.42.0.30") {
		t.Errorf("resolver pinned %s on %q", f.res.addr, f.res.iface)
	}
	if f.ts.steps != 1 || f.ts.bursts != 1 || f.ts.trackings != 1 {
		t.Errorf("timesync steps=%d bursts=%d trackings=%d", f.ts.steps, f.ts.bursts, f.ts.trackings)
	}

	lease, ok := seq.Lease()
	if !ok {
		t.Fatal("no lease recorded")
	}
	if lease.Address != netip.MustParsePrefix("10.42.0.77/16") || lease.Interface != "wlan0" {
		t.Errorf("lease = %+v", lease)
	}
}

func TestRunFatalWhenInterfaceNeverAppears(t *testing.T) {
	f := newFakes()
	f.links.appearAfter = 1000
	run := f.sequencer(t).Run(context.Background())

	if run.Status != meshup.StatusFatal {
		t.Fatalf("Status = %v, want fatal", run.Status)
	}
	if stage, ok := run.FatalStage(); !ok || stage != StageInterfaceWait {
		t.Errorf("FatalStage = %q, %v", stage, ok)
	}
	// The poll budget is exactly the configured attempt count.
	if f.links.exists != 10 {
		t.Errorf("Exists calls = %d, want 10", f.links.exists)
	}
	// Nothing after the fatal stage runs.
	if got := stageNames(run); len(got) != 2 {
		t.Errorf("stages = %v, want radio-unblock + interface-wait only", got)
	}
	if f.leases.acquires != 0 || f.res.pins != 0 {
		t.Errorf("later stages ran: acquires=%d pins=%d", f.leases.acquires, f.res.pins)
	}
}

func TestRunFatalWhenLeaseNeverObserved(t *testing.T) {
	f := newFakes()
	f.links.addrs = nil // client exits clean but nothing is bound
	run := f.sequencer(t).Run(context.Background())

	if run.Status != meshup.StatusFatal {
		t.Fatalf("Status = %v, want fatal", run.Status)
	}
	if stage, ok := run.FatalStage(); !ok || stage != StageDhcpAcquire {
		t.Errorf("FatalStage = %q, %v", stage, ok)
	}
	if f.leases.acquires != 10 {
		t.Errorf("Acquire calls = %d, want the full 10-attempt budget", f.leases.acquires)
	}
	if f.res.pins != 0 {
		t.Errorf("resolver pinned %d times after fatal dhcp", f.res.pins)
	}
}

// The bring-up scenario: interface appears on the fourth poll, the lease
// lands on the second attempt, the supervisor never answers. The run ends
// success-with-warnings with exactly one degraded stage.
func TestRunDegradedSupervisorContinues(t *testing.T) {
	f := newFakes()
	f.links.appearAfter = 3
	f.leases.acquireFailures = 1
	f.ping.unreachable[netip.MustParseAddr("10.42.0.30")] = true

	run := f.sequencer(t).Run(context.Background())

	if run.Status != meshup.StatusWarnings {
		t.Fatalf("Status = %v, want success-with-warnings\nlog:\n%s", run.Status, f.log)
	}
	if got := run.DegradedCount(); got != 1 {
		t.Fatalf("DegradedCount = %d, want 1", got)
	}
	if _, ok := run.FatalStage(); ok {
		t.Fatal("run has a fatal stage")
	}
	for _, s := range run.Stages {
		if s.Stage == StageSupervisorReach && s.Outcome != meshup.OutcomeDegraded {
			t.Errorf("supervisor stage outcome = %v", s.Outcome)
		}
	}

	if f.links.exists != 4 {
		t.Errorf("Exists calls = %d, want 4", f.links.exists)
	}
	if f.leases.acquires != 2 {
		t.Errorf("Acquire calls = %d, want 2", f.leases.acquires)
	}
	// Supervisor probes exhaust the 3-attempt budget, then one internet probe.
	if len(f.ping.calls) != 4 {
		t.Fatalf("ping calls = %v, want 3 supervisor + 1 internet", f.ping.calls)
	}
	if f.ping.calls[3] != netip.MustParseAddr("8.8.8.8") {
		t.Errorf("last probe = %v, want 8.8.8.8", f.ping.calls[3])
	}
	if f.ts.steps != 1 {
		t.Errorf("time sync skipped: steps = %d", f.ts.steps)
	}
	if !strings.Contains(f.log.String(), "supervisor 10.42.0.30 unreachable") {
		t.Errorf("log missing supervisor warning:\n%s", f.log)
	}
}

// Pinning DNS through the resolver-file fallback still works, but the run
// must not finalize clean: the live resolver control was unavailable.
func TestRunDnsFallbackDegrades(t *testing.T) {
	f := newFakes()
	f.res.fallback = true

	run := f.sequencer(t).Run(context.Background())

	if run.Status != meshup.StatusWarnings {
		t.Fatalf("Status = %v, want success-with-warnings\nlog:\n%s", run.Status, f.log)
	}
	if got := run.DegradedCount(); got != 1 {
		t.Fatalf("DegradedCount = %d, want 1", got)
	}
	for _, s := range run.Stages {
		if s.Stage == StageDnsPin {
			if s.Outcome != meshup.OutcomeDegraded {
				t.Errorf("dns-pin outcome = %v, want degraded", s.Outcome)
			}
			if !strings.Contains(s.Detail, "resolver file") {
				t.Errorf("dns-pin detail = %q, want fallback note", s.Detail)
			}
		}
	}
	// The sequence continued past the degraded pin.
	if f.ts.steps != 1 || len(f.ping.calls) != 2 {
		t.Errorf("later stages skipped: steps=%d pings=%v", f.ts.steps, f.ping.calls)
	}
}

// The offset sample is advisory: a supervisor whose NTP port is dark must
// not degrade a time-sync stage whose chronyc calls all worked.
func TestRunOffsetSampleIsAdvisory(t *testing.T) {
	f := newFakes()
	f.ts.offsetErr = errors.New("no route to host")

	run := f.sequencer(t).Run(context.Background())

	if run.Status != meshup.StatusSuccess {
		t.Fatalf("Status = %v, want success\nlog:\n%s", run.Status, f.log)
	}
	for _, s := range run.Stages {
		if s.Stage == StageTimeSync {
			if s.Outcome != meshup.OutcomeSuccess {
				t.Errorf("time-sync outcome = %v, want success", s.Outcome)
			}
			if !strings.Contains(s.Detail, "offset vs supervisor unavailable") {
				t.Errorf("time-sync detail = %q, want offset note", s.Detail)
			}
		}
	}
}

// An unreachable internet is recorded but never counts against the status.
func TestRunInternetCheckIsInformational(t *testing.T) {
	f := newFakes()
	f.ping.unreachable[netip.MustParseAddr("8.8.8.8")] = true

	run := f.sequencer(t).Run(context.Background())

	if run.Status != meshup.StatusSuccess {
		t.Fatalf("Status = %v, want success", run.Status)
	}
	last := run.Stages[len(run.Stages)-1]
	if last.Stage != StageInternetCheck || last.Outcome != meshup.OutcomeSuccess {
		t.Fatalf("last stage = %+v", last)
	}
	if !strings.Contains(last.Detail, "internet unreachable") {
		t.Errorf("Detail = %q, want unreachable note", last.Detail)
	}
}

func TestRunTimeSyncBestEffort(t *testing.T) {
	f := newFakes()
	f.ts.stepErr = errors.New("506 Cannot talk to daemon")

	run := f.sequencer(t).Run(context.Background())

	if run.Status != meshup.StatusWarnings {
		t.Fatalf("Status = %v, want success-with-warnings", run.Status)
	}
	// Burst and tracking still ran after the failed step.
	if f.ts.bursts != 1 || f.ts.trackings != 1 {
		t.Errorf("bursts=%d trackings=%d, want 1 each", f.ts.bursts, f.ts.trackings)
	}
	// The check after time sync still ran.
	if len(f.ping.calls) != 2 {
		t.Errorf("ping calls = %v, want supervisor + internet", f.ping.calls)
	}
}

func TestRunReleaseFailureIgnored(t *testing.T) {
	f := newFakes()
	f.leases.releaseErr = errors.New("dhclient: no lease to release")

	run := f.sequencer(t).Run(context.Background())

	if run.Status != meshup.StatusSuccess {
		t.Fatalf("Status = %v, want success", run.Status)
	}
	if !strings.Contains(f.log.String(), "lease release on wlan0 failed") {
		t.Errorf("log missing release note:\n%s", f.log)
	}
}

func TestRunCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newFakes()
	run := f.sequencer(t).Run(ctx)

	if run.Status != meshup.StatusFatal {
		t.Fatalf("Status = %v, want fatal", run.Status)
	}
	if f.radio.calls != 0 {
		t.Errorf("radio ran %d times after cancellation", f.radio.calls)
	}
	if len(run.Stages) != 1 || run.Stages[0].Stage != StageRadioUnblock {
		t.Errorf("stages = %v, want the first stage marked and nothing more", stageNames(run))
	}
}
