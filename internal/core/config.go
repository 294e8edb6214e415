package core

import "time"

type AppConfig interface {
	GetRuntimePath() string
	GetDatabasePath() string
	GetMaxContextMessages() int
	IsHTTPEnabled() bool
	IsTelegramEnabled() bool
}

type GenerationConfig interface {
	GetModel() string
	GetMaxNewTokens() int
	GetTemperature() float64
	GetTopP() float64
	GetInferenceTimeout() time.Duration
}

type TelegramConfig interface {
	GetTelegramToken() string
	GetTelegramOwnerID() int64
}
