package eventbus

import (
	"os"
	"strings"
)

// LookupBrokers returns Kafka bootstrap servers from env KAFKA_BOOTSTRAP_SERVERS.
// 비어 있으면 이벤트 발행을 끈다.
func LookupBrokers() (string, bool) {
	v := strings.TrimSpace(os.Getenv("KAFKA_BOOTSTRAP_SERVERS"))
	return v, v != ""
}
