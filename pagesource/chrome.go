package pagesource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"timeline-agent/config"
	"timeline-agent/models"
	"timeline-agent/parser"
)

const USER_AGENT = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36"

var (
	errElementMissing = errors.New("element not found")
	errButtonDisabled = errors.New("button is disabled")
)

// ChromePage drives a single browser session. Operations are serialized because
// the session is not safe to share between concurrent actions.
type ChromePage struct {
	cfg config.BrowserConfig

	mu            sync.Mutex
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
}

func NewChromePage(cfg config.BrowserConfig) (*ChromePage, error) {
	chromePath := cfg.ChromePath
	if chromePath == "" {
		chromePath = os.Getenv("CHROME_PATH")
	}
	if chromePath == "" {
		chromePath = "/usr/bin/chromium-browser" // Docker/Linux 기본
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(chromePath),
		chromedp.UserAgent(USER_AGENT),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-crashpad", true),
		chromedp.Flag("disable-breakpad", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("headless", cfg.Headless),
	)
	if cfg.UserDataDir != "" {
		// 로그인 세션은 프로필 디렉터리에 유지된다.
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return &ChromePage{
		cfg:           cfg,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
	}, nil
}

// Close shuts the browser down.
func (p *ChromePage) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.browserCancel()
	p.allocCancel()
}

// withTab opens a fresh tab bound to the caller's ctx and runs fn in it.
func (p *ChromePage) withTab(ctx context.Context, fn func(tabCtx context.Context) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	tabCtx, cancel := chromedp.NewContext(p.browserCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(tabCtx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("open tab: %w", err)
	}
	err := fn(tabCtx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// load navigates and waits for waitSel, retrying transient page load failures.
func (p *ChromePage) load(ctx context.Context, url, waitSel string) error {
	rp := retrypolicy.NewBuilder[any]().
		WithMaxRetries(2).
		WithBackoff(time.Second, 5*time.Second).
		HandleIf(func(_ any, err error) bool {
			return err != nil && ctx.Err() == nil
		}).
		Build()

	return failsafe.With[any](rp).WithContext(ctx).Run(func() error {
		navCtx, cancel := context.WithTimeout(ctx, p.cfg.NavigationWait)
		defer cancel()
		return chromedp.Run(navCtx,
			chromedp.Navigate(url),
			chromedp.WaitVisible(waitSel, chromedp.ByQuery),
		)
	})
}

// FetchTimelinePosts scrolls the home timeline and returns up to maxCount posts in page order.
func (p *ChromePage) FetchTimelinePosts(ctx context.Context, maxCount int) ([]models.RawPost, error) {
	if maxCount <= 0 {
		return []models.RawPost{}, nil
	}

	posts := []models.RawPost{}
	err := p.withTab(ctx, func(tabCtx context.Context) error {
		if err := p.load(tabCtx, p.cfg.TimelineURL, articleSelector); err != nil {
			return fmt.Errorf("load timeline: %w", err)
		}

		seen := map[string]struct{}{}
		collect := func() error {
			var outer []string
			js := fmt.Sprintf(`Array.from(document.querySelectorAll(%s)).map(a => a.outerHTML)`, jsString(articleSelector))
			if err := chromedp.Run(tabCtx, chromedp.Evaluate(js, &outer)); err != nil {
				return err
			}
			for _, h := range outer {
				raw, err := parser.ParseArticleHTML(h)
				if err != nil {
					config.Logger.Debugf("skip article: %v", err)
					continue
				}
				if _, dup := seen[raw.PostID]; dup {
					continue
				}
				seen[raw.PostID] = struct{}{}
				posts = append(posts, *raw)
			}
			return nil
		}

		if err := collect(); err != nil {
			return err
		}
		// 타임라인은 가상 스크롤이라 스크롤할 때마다 다시 수집한다.
		for round := 0; round < p.cfg.ScrollRounds && len(posts) < maxCount; round++ {
			if err := chromedp.Run(tabCtx,
				chromedp.Evaluate(`window.scrollBy(0, window.innerHeight * 2)`, nil),
				chromedp.Sleep(p.cfg.SettleDelay),
			); err != nil {
				return err
			}
			if err := collect(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(posts) > maxCount {
		posts = posts[:maxCount]
	}
	config.Logger.Infof("fetched %d timeline posts", len(posts))
	return posts, nil
}

// PostReply opens the post and submits text as a reply.
func (p *ChromePage) PostReply(ctx context.Context, postID, text string) (Result, error) {
	var res Result
	err := p.withTab(ctx, func(tabCtx context.Context) error {
		if err := p.load(tabCtx, fmt.Sprintf(p.cfg.StatusURL, postID), articleSelector); err != nil {
			return fmt.Errorf("load post %s: %w", postID, err)
		}
		if _, err := TryInOrder(tabCtx, "reply_button", p.clickStrategies(replyButtonSelectors)); err != nil {
			return err
		}
		if err := chromedp.Run(tabCtx, chromedp.Sleep(p.cfg.SettleDelay)); err != nil {
			return err
		}
		var err error
		res, err = p.submit(tabCtx, text)
		return err
	})
	return res, err
}

// PostNewContent publishes text as a new post from the compose page.
func (p *ChromePage) PostNewContent(ctx context.Context, text string) (Result, error) {
	var res Result
	err := p.withTab(ctx, func(tabCtx context.Context) error {
		if err := p.load(tabCtx, p.cfg.ComposeURL, textInputSelectors[0]); err != nil {
			return fmt.Errorf("load compose: %w", err)
		}
		var err error
		res, err = p.submit(tabCtx, text)
		return err
	})
	return res, err
}

// submit fills the open composer, presses the post button and waits for confirmation.
func (p *ChromePage) submit(ctx context.Context, text string) (Result, error) {
	if _, err := TryInOrder(ctx, "text_input", p.fillStrategies(text)); err != nil {
		return Result{}, err
	}
	if err := chromedp.Run(ctx, chromedp.Sleep(p.cfg.SettleDelay)); err != nil {
		return Result{}, err
	}
	res, err := TryInOrder(ctx, "submit_button", p.clickStrategies(submitButtonSelectors))
	if err != nil {
		return res, err
	}
	if err := chromedp.Run(ctx, chromedp.Sleep(p.cfg.SettleDelay)); err != nil {
		return res, err
	}
	// 게시 버튼은 이미 눌렸으므로 재시도하면 중복 게시될 수 있다.
	if _, err := TryInOrder(ctx, "verify", p.waitStrategies(successIndicatorSelectors)); err != nil {
		return res, fmt.Errorf("%w: %w", ErrUnverified, err)
	}
	return res, nil
}

func (p *ChromePage) timed(actions ...chromedp.Action) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		stepCtx, cancel := context.WithTimeout(ctx, p.cfg.SelectorWait)
		defer cancel()
		return chromedp.Run(stepCtx, actions...)
	}
}

func (p *ChromePage) clickStrategies(selectors []string) []Strategy {
	var out []Strategy
	for _, sel := range selectors {
		out = append(out,
			Strategy{Name: sel + " click", Run: p.timed(
				chromedp.WaitVisible(sel, chromedp.ByQuery),
				enabled(sel),
				chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible),
			)},
			Strategy{Name: sel + " js-click", Run: p.timed(jsClick(sel))},
		)
	}
	return out
}

// fillStrategies clears the composer before every attempt so a strategy that
// typed part of the text and then failed leaves nothing behind.
func (p *ChromePage) fillStrategies(text string) []Strategy {
	var out []Strategy
	for _, sel := range textInputSelectors {
		out = append(out,
			Strategy{Name: sel + " send-keys", Run: p.timed(
				chromedp.WaitVisible(sel, chromedp.ByQuery),
				jsClear(sel),
				chromedp.SendKeys(sel, text, chromedp.ByQuery),
			)},
			Strategy{Name: sel + " click-type", Run: p.timed(
				chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible),
				jsClear(sel),
				chromedp.KeyEvent(text),
			)},
		)
	}
	sel := textInputSelectors[0]
	out = append(out, Strategy{Name: sel + " js-input", Run: p.timed(jsClear(sel), jsFill(sel, text))})
	return out
}

func (p *ChromePage) waitStrategies(selectors []string) []Strategy {
	var out []Strategy
	for _, sel := range selectors {
		out = append(out, Strategy{Name: sel, Run: p.timed(chromedp.WaitReady(sel, chromedp.ByQuery))})
	}
	return out
}

func enabled(sel string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		var disabled string
		var ok bool
		if err := chromedp.AttributeValue(sel, "aria-disabled", &disabled, &ok, chromedp.ByQuery).Do(ctx); err != nil {
			return err
		}
		if ok && disabled == "true" {
			return errButtonDisabled
		}
		return nil
	})
}

func jsClick(sel string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		var clicked bool
		js := fmt.Sprintf(`(() => {
			const el = document.querySelector(%s);
			if (!el || el.getAttribute('aria-disabled') === 'true') return false;
			el.click();
			return true;
		})()`, jsString(sel))
		if err := chromedp.Evaluate(js, &clicked).Do(ctx); err != nil {
			return err
		}
		if !clicked {
			return errElementMissing
		}
		return nil
	})
}

// clearScript empties an input, textarea or contenteditable element. The
// editor sees the change through execCommand and the input event.
func clearScript(sel string) string {
	return fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return false;
		el.focus();
		if (el.tagName === 'TEXTAREA' || el.tagName === 'INPUT') {
			el.value = '';
		} else {
			document.execCommand('selectAll', false, null);
			document.execCommand('delete', false, null);
			if (el.textContent !== '') el.textContent = '';
		}
		el.dispatchEvent(new Event('input', { bubbles: true }));
		return true;
	})()`, jsString(sel))
}

func jsClear(sel string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		var cleared bool
		if err := chromedp.Evaluate(clearScript(sel), &cleared).Do(ctx); err != nil {
			return err
		}
		if !cleared {
			return errElementMissing
		}
		return nil
	})
}

func jsFill(sel, text string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		var filled bool
		js := fmt.Sprintf(`(() => {
			const el = document.querySelector(%s);
			if (!el) return false;
			el.innerText = %s;
			el.dispatchEvent(new Event('input', { bubbles: true }));
			return true;
		})()`, jsString(sel), jsString(text))
		if err := chromedp.Evaluate(js, &filled).Do(ctx); err != nil {
			return err
		}
		if !filled {
			return errElementMissing
		}
		return nil
	})
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
