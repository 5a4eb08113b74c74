package textservice

import (
	"context"
	"sync"
	"time"

	"timeline-agent/config"
)

// QuotaLimiter 는 Text Service 호출에 대한 분당/일일 한도를 관리한다.
// 에이전트 프로세스가 하나라는 전제로 인메모리로 동작하며 재시작 시 카운터가 초기화된다.
type QuotaLimiter struct {
	mu sync.Mutex

	dailyLimit int
	usedToday  int
	dayKey     string

	interval time.Duration
	lastCall time.Time

	now func() time.Time
}

// NewQuotaLimiter 는 text_quota 설정으로 limiter 를 만든다. 0 이하 값은 제한 없음.
func NewQuotaLimiter(cfg config.TextQuotaConfig) *QuotaLimiter {
	requestsPerDay := max(cfg.RequestsPerDay, 0)
	requestsPerMinute := max(cfg.RequestsPerMinute, 0)

	var interval time.Duration
	if requestsPerMinute > 0 {
		interval = time.Minute / time.Duration(requestsPerMinute)
	}

	return &QuotaLimiter{
		dailyLimit: requestsPerDay,
		interval:   interval,
		now:        time.Now,
	}
}

// WaitAndReserve 는 호출 전에 분당/일일 한도를 적용한다.
// - 일일 한도를 초과한 경우: (false, nil). 호출자는 호출을 건너뛴다.
// - 컨텍스트 취소: (false, ctx.Err()).
func (l *QuotaLimiter) WaitAndReserve(ctx context.Context) (bool, error) {
	for {
		l.mu.Lock()

		now := l.now().UTC()
		todayKey := now.Format("2006-01-02")
		if l.dayKey != todayKey {
			l.dayKey = todayKey
			l.usedToday = 0
		}

		if l.dailyLimit > 0 && l.usedToday >= l.dailyLimit {
			l.mu.Unlock()
			return false, nil
		}

		var delay time.Duration
		if l.interval > 0 && !l.lastCall.IsZero() {
			delay = l.lastCall.Add(l.interval).Sub(now)
		}

		if delay <= 0 {
			l.usedToday++
			l.lastCall = now
			l.mu.Unlock()
			return true, nil
		}

		// 락을 풀고 기다린 뒤 상태를 다시 평가한다.
		l.mu.Unlock()
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return false, ctx.Err()
		}
	}
}

// UsedToday returns how many calls were reserved on the current UTC day.
func (l *QuotaLimiter) UsedToday() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.usedToday
}
