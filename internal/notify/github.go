package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/reviewer-calls/internal/urlnorm"
)

// CandidateLabel marks issues opened for triage.
const CandidateLabel = "candidate"

var issueURLRe = regexp.MustCompile(`https?://[^\s)>|]+`)

// Runner executes an external command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs the command with os/exec, folding stderr into the error.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args[:min(2, len(args))], " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// GitHubConfig configures the issue-tracker channel.
type GitHubConfig struct {
	// Repo is owner/name. An empty repo disables the channel.
	Repo string
	// Binary is the gh executable; defaults to "gh".
	Binary string
	// Label tags created issues and filters known URLs; defaults to CandidateLabel.
	Label string
	// Limit caps how many open issues are scanned for known URLs.
	Limit   int
	Timeout time.Duration
	Runner  Runner
}

// GitHub opens one issue per candidate through the gh CLI and reports URLs
// already under triage.
type GitHub struct {
	cfg    GitHubConfig
	logger *zap.Logger
}

// NewGitHub applies defaults and returns the channel.
func NewGitHub(cfg GitHubConfig, logger *zap.Logger) *GitHub {
	if cfg.Binary == "" {
		cfg.Binary = "gh"
	}
	if cfg.Label == "" {
		cfg.Label = CandidateLabel
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 500
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Runner == nil {
		cfg.Runner = ExecRunner
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GitHub{cfg: cfg, logger: logger}
}

// Enabled reports whether a repository is configured.
func (g *GitHub) Enabled() bool { return g.cfg.Repo != "" }

// Name implements Notifier.
func (*GitHub) Name() string { return "github" }

// KnownURLs returns the normalized URLs mentioned in open candidate issues.
func (g *GitHub) KnownURLs(ctx context.Context) (map[string]struct{}, error) {
	known := make(map[string]struct{})
	if !g.Enabled() {
		return known, nil
	}
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()
	out, err := g.cfg.Runner(ctx, g.cfg.Binary,
		"issue", "list",
		"--repo", g.cfg.Repo,
		"--state", "open",
		"--label", g.cfg.Label,
		"--json", "body",
		"--limit", strconv.Itoa(g.cfg.Limit),
	)
	if err != nil {
		return known, fmt.Errorf("list issues: %w", err)
	}
	var issues []struct {
		Body string `json:"body"`
	}
	if err := json.Unmarshal(out, &issues); err != nil {
		return known, fmt.Errorf("decode issue list: %w", err)
	}
	for _, issue := range issues {
		for _, u := range issueURLRe.FindAllString(issue.Body, -1) {
			known[urlnorm.Normalize(u)] = struct{}{}
		}
	}
	g.logger.Info("loaded urls from open issues",
		zap.String("repo", g.cfg.Repo),
		zap.Int("issues", len(issues)),
		zap.Int("urls", len(known)),
	)
	return known, nil
}

// Notify implements Notifier by opening a labelled issue.
func (g *GitHub) Notify(ctx context.Context, n Notification) error {
	if !g.Enabled() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()
	out, err := g.cfg.Runner(ctx, g.cfg.Binary,
		"issue", "create",
		"--repo", g.cfg.Repo,
		"--title", IssueTitle(n),
		"--body", IssueBody(n),
		"--label", g.cfg.Label,
	)
	if err != nil {
		return fmt.Errorf("create issue: %w", err)
	}
	g.logger.Info("created issue", zap.String("issue", strings.TrimSpace(string(out))), zap.String("url", n.URL))
	return nil
}

// IssueTitle formats the issue title for n.
func IssueTitle(n Notification) string {
	return fmt.Sprintf("[Discovery] %s %d %s call", n.Conference, n.Year, n.Role)
}

// IssueBody formats the triage issue for n.
func IssueBody(n Notification) string {
	var b strings.Builder
	b.WriteString("## Discovery Result\n\n")
	b.WriteString("| Conference | Year | Role | Label | Score | URL |\n")
	b.WriteString("|------------|------|------|-------|-------|-----|\n")
	fmt.Fprintf(&b, "| %s | %d | %s | %s | %.1f | %s |\n", n.Conference, n.Year, n.Role, n.Label, n.DiscoveryScore, n.URL)
	if len(n.Signals) > 0 {
		signals := n.Signals[:min(3, len(n.Signals))]
		fmt.Fprintf(&b, "\nMatched: %s\n", strings.Join(signals, ", "))
	}
	b.WriteString("\n## Verification Checklist\n\n")
	fmt.Fprintf(&b, "- [ ] **%s %d** (%s): %s\n", n.Conference, n.Year, n.Role, n.URL)
	return b.String()
}
