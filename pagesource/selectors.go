package pagesource

// 플랫폼 UI 가 자주 바뀌어서 후보 셀렉터를 순서대로 시도한다.
var (
	articleSelector = `article[data-testid="tweet"]`

	replyButtonSelectors = []string{
		`[data-testid="reply"]`,
		`div[aria-label="Reply"]`,
		`div[role="button"][aria-label*="Reply"]`,
		`div[data-testid="reply"][role="button"]`,
	}

	textInputSelectors = []string{
		`[data-testid="tweetTextarea_0"]`,
		`div[role="textbox"][aria-label="Tweet text"]`,
		`div[data-testid="tweetTextarea_0"] div[role="textbox"]`,
		`div[contenteditable="true"]`,
	}

	submitButtonSelectors = []string{
		`[data-testid="tweetButton"]`,
		`div[data-testid="tweetButtonInline"]`,
		`div[role="button"][data-testid*="tweet"]`,
	}

	successIndicatorSelectors = []string{
		`div[data-testid="toast"]`,
		`div[role="alert"]`,
		`div[data-testid="cellInnerDiv"]`,
	}
)
