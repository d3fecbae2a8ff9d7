package generate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/lumora-labs/paperask/internal/domain"
)

const (
	chatURL = "https://chatgpt.com"

	promptSelector = "#prompt-textarea"
	sendSelector   = `button[data-testid="send-button"]`
	stopSelector   = `button[data-testid="stop-button"]`

	loginPoll  = 2 * time.Second
	streamPoll = 500 * time.Millisecond
)

// BrowserGenerator drives a logged-in ChatGPT web session with a headless (or
// visible) Chrome instance. The session is a process-wide singleton: one
// persistent browser profile, acquired on first use, and a capacity-1 slot so
// concurrent requests serialize instead of opening competing sessions.
type BrowserGenerator struct {
	userDataDir string
	headless    bool
	loginWait   time.Duration
	logger      *zap.Logger

	slot chan struct{}

	mu          sync.Mutex
	browserCtx  context.Context
	cancelFuncs []context.CancelFunc
}

// BrowserConfig holds the browser-automated backend settings.
type BrowserConfig struct {
	UserDataDir string
	Headless    bool
	// LoginWait is how long a visible browser waits for the user to complete
	// an interactive login before giving up.
	LoginWait time.Duration
	Logger    *zap.Logger
}

// NewBrowser creates the browser-automated generation backend. The browser
// itself is not started until the first Generate call.
func NewBrowser(cfg BrowserConfig) *BrowserGenerator {
	return &BrowserGenerator{
		userDataDir: cfg.UserDataDir,
		headless:    cfg.Headless,
		loginWait:   cfg.LoginWait,
		logger:      cfg.Logger,
		slot:        make(chan struct{}, 1),
	}
}

// Name implements domain.Generator.
func (g *BrowserGenerator) Name() string { return "chatgpt-web" }

// Models returns the single pseudo-model identifier of the web session.
func (g *BrowserGenerator) Models() []string { return []string{"chatgpt-web"} }

// Generate implements domain.Generator. Calls serialize through the
// capacity-1 session slot; waiting for the slot is bounded by ctx.
func (g *BrowserGenerator) Generate(ctx context.Context, req domain.GenerateRequest) (domain.GenerateResult, error) {
	select {
	case g.slot <- struct{}{}:
		defer func() { <-g.slot }()
	case <-ctx.Done():
		return domain.GenerateResult{}, classifyCtxErr(ctx.Err())
	}

	if err := g.ensureSession(ctx); err != nil {
		return domain.GenerateResult{}, err
	}

	// The web UI has no separate system role; prepend the grounding
	// instruction to the message body.
	message := req.Prompt
	if req.System != "" {
		message = req.System + "\n\n" + req.Prompt
	}

	text, err := g.sendMessage(ctx, message)
	if err != nil {
		return domain.GenerateResult{}, err
	}

	return domain.GenerateResult{Text: text, Model: "chatgpt-web"}, nil
}

// ensureSession starts the browser on first use and verifies the session is
// logged in. A login wall surfaces as domain.ErrLoginRequired so the caller
// can tell the user exactly what to do, instead of a generic transport error.
func (g *BrowserGenerator) ensureSession(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.browserCtx == nil {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.UserDataDir(g.userDataDir),
			chromedp.Flag("headless", g.headless),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.WindowSize(1280, 720),
		)
		allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
		browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

		if err := chromedp.Run(browserCtx); err != nil {
			cancelBrowser()
			cancelAlloc()
			return fmt.Errorf("start browser: %v: %w", err, domain.ErrGenerationFailed)
		}

		g.browserCtx = browserCtx
		g.cancelFuncs = []context.CancelFunc{cancelBrowser, cancelAlloc}
		g.logger.Info("browser session started",
			zap.String("profile", g.userDataDir),
			zap.Bool("headless", g.headless),
		)
	}

	runCtx, cancel := context.WithCancel(g.browserCtx)
	defer cancel()
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-runCtx.Done():
		}
	}()

	if err := chromedp.Run(runCtx, chromedp.Navigate(chatURL)); err != nil {
		return fmt.Errorf("open %s: %v: %w", chatURL, err, domain.ErrGenerationFailed)
	}

	loggedIn, err := g.waitForPrompt(runCtx, loginPoll)
	if err != nil {
		return err
	}
	if loggedIn {
		return nil
	}

	if g.headless {
		return fmt.Errorf("log in to ChatGPT once with a visible browser (set generation.chatgpt_web.headless: false), then retry: %w",
			domain.ErrLoginRequired)
	}

	g.logger.Warn("waiting for interactive ChatGPT login in the browser window",
		zap.Duration("timeout", g.loginWait))
	loggedIn, err = g.waitForPrompt(runCtx, g.loginWait)
	if err != nil {
		return err
	}
	if !loggedIn {
		return fmt.Errorf("login not completed within %s: %w", g.loginWait, domain.ErrLoginRequired)
	}
	g.logger.Info("login detected, continuing")
	return nil
}

// waitForPrompt polls for the chat input to become available, which is the
// reliable signal of a logged-in session.
func (g *BrowserGenerator) waitForPrompt(ctx context.Context, wait time.Duration) (bool, error) {
	deadline := time.Now().Add(wait)
	for {
		var present bool
		err := chromedp.Run(ctx, chromedp.Evaluate(
			fmt.Sprintf(`document.querySelector(%q) !== null`, promptSelector), &present))
		if err != nil {
			return false, fmt.Errorf("probe chat input: %v: %w", err, domain.ErrGenerationFailed)
		}
		if present {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, classifyCtxErr(ctx.Err())
		case <-time.After(loginPoll):
		}
	}
}

// sendMessage types the message into the chat input, submits it, and waits
// for the assistant's reply to finish streaming.
func (g *BrowserGenerator) sendMessage(ctx context.Context, message string) (string, error) {
	runCtx, cancel := context.WithCancel(g.browserCtx)
	defer cancel()
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-runCtx.Done():
		}
	}()

	var before int
	countJS := `document.querySelectorAll('[data-message-author-role="assistant"]').length`

	err := chromedp.Run(runCtx,
		chromedp.WaitVisible(promptSelector, chromedp.ByQuery),
		chromedp.Evaluate(countJS, &before),
		setPromptText(promptSelector, message),
		chromedp.Click(sendSelector, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("submit message: %v: %w", err, domain.ErrGenerationFailed)
	}

	lastJS := fmt.Sprintf(`(() => {
		const msgs = document.querySelectorAll('[data-message-author-role="assistant"]');
		if (msgs.length <= %d) { return ""; }
		return msgs[msgs.length - 1].innerText;
	})()`, before)
	stoppedJS := fmt.Sprintf(`document.querySelector(%q) === null`, stopSelector)

	for {
		select {
		case <-ctx.Done():
			return "", classifyCtxErr(ctx.Err())
		case <-time.After(streamPoll):
		}

		var reply string
		var stopped bool
		err := chromedp.Run(runCtx,
			chromedp.Evaluate(lastJS, &reply),
			chromedp.Evaluate(stoppedJS, &stopped),
		)
		if err != nil {
			if ctx.Err() != nil {
				return "", classifyCtxErr(ctx.Err())
			}
			return "", fmt.Errorf("read reply: %v: %w", err, domain.ErrGenerationFailed)
		}

		if stopped && strings.TrimSpace(reply) != "" {
			return strings.TrimSpace(reply), nil
		}
	}
}

// setPromptText fills the contenteditable chat input and fires an input event
// so the UI enables the send button. SendKeys is far too slow for prompts
// carrying several thousand characters of context.
func setPromptText(selector, text string) chromedp.Action {
	js := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		el.focus();
		el.innerText = %q;
		el.dispatchEvent(new Event('input', { bubbles: true }));
	})()`, selector, text)
	return chromedp.Evaluate(js, nil)
}

// Close shuts the browser session down.
func (g *BrowserGenerator) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, cancel := range g.cancelFuncs {
		cancel()
	}
	g.browserCtx = nil
	g.cancelFuncs = nil
}

var _ domain.Generator = (*BrowserGenerator)(nil)
