package eventbus

// 전역 토픽 선언. kafka.topic 설정이 있으면 그 이름을 쓴다.
var TopicAgentEvents = NewTopic("timeline-agent.events")
