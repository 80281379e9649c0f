package sim

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// Scenario describes the channel impairment applied to the egress device
// carrying fountain datagrams.
type Scenario struct {
	Dev           string
	DelayMs       float32
	JitterMs      float32
	BandwidthMbps float32
	LossRate      float32 // 0..1
	ReorderRate   float32 // 0..1
}

// NetemManager drives Linux tc to shape the egress path: an HTB rate class
// when bandwidth is limited, with a netem child for delay, loss and
// reordering. Requires root and the tc binary.
type NetemManager struct {
	dev       string
	unlimited bool
}

func NewNetemManager() *NetemManager { return &NetemManager{} }

// Apply resets the device root qdisc and installs the scenario.
func (m *NetemManager) Apply(s *Scenario) error {
	if s == nil {
		return nil
	}
	if s.Dev == "" {
		return fmt.Errorf("netem: device not set")
	}
	m.dev = s.Dev
	m.unlimited = s.BandwidthMbps <= 0

	// Always reset the root first; tc 'change' is unreliable across shapes.
	_ = m.delRoot()

	if m.unlimited {
		return m.addRootNetem(s)
	}
	if err := m.addRootHTB(s.BandwidthMbps); err != nil {
		return err
	}
	return m.addChildNetem("1:1", s)
}

// Update applies a scenario through Apply, which switches the manager to the
// device named by s.Dev.
func (m *NetemManager) Update(s *Scenario) error {
	if s == nil {
		return nil
	}
	if m.dev == "" {
		m.dev = s.Dev
	}
	return m.Apply(s)
}

// Cleanup removes whatever this manager installed. Errors are ignored: the
// qdisc may already be gone.
func (m *NetemManager) Cleanup() error {
	if m.dev != "" {
		_ = run("tc", "qdisc", "del", "dev", m.dev, "root")
	}
	return nil
}

func (m *NetemManager) addRootHTB(mbps float32) error {
	if err := run("tc", "qdisc", "add", "dev", m.dev, "root", "handle", "1:", "htb", "default", "1"); err != nil {
		return err
	}
	rate := fmt.Sprintf("%.0fmbit", mbps)
	return run("tc", "class", "replace", "dev", m.dev, "parent", "1:", "classid", "1:1",
		"htb", "rate", rate, "ceil", rate)
}

func (m *NetemManager) addRootNetem(s *Scenario) error {
	args := append([]string{"qdisc", "add", "dev", m.dev, "root", "handle", "10:"}, netemArgs(s)...)
	return run("tc", args...)
}

func (m *NetemManager) addChildNetem(parent string, s *Scenario) error {
	_ = run("tc", "qdisc", "del", "dev", m.dev, "parent", parent, "handle", "100:")
	args := append([]string{"qdisc", "add", "dev", m.dev, "parent", parent, "handle", "100:"}, netemArgs(s)...)
	return run("tc", args...)
}

func netemArgs(s *Scenario) []string {
	args := []string{"netem",
		"delay", fmt.Sprintf("%.2fms", s.DelayMs), fmt.Sprintf("%.2fms", s.JitterMs),
		"loss", fmt.Sprintf("%.3f%%", s.LossRate*100.0)}
	if s.ReorderRate > 0 {
		args = append(args, "reorder", fmt.Sprintf("%.2f%%", s.ReorderRate*100.0), "gap", "5")
	}
	return args
}

func (m *NetemManager) delRoot() error {
	return run("tc", "qdisc", "del", "dev", m.dev, "root")
}

func run(cmd string, args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	c := exec.CommandContext(ctx, cmd, args...)
	out, err := c.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %v: %v\n%s", cmd, args, err, string(out))
	}
	return nil
}
