package installer

// Keys the wizard writes to the runtime .env file.
const (
	keyOllamaURL      = "OLLAMA_BASE_URL"
	keyModel          = "MODEL_ASSISTANT"
	keyEnableHTTP     = "ENABLE_HTTP"
	keyEnableTelegram = "ENABLE_TELEGRAM"
	keyTelegramToken  = "TELEGRAM_TOKEN"
	keyTelegramOwner  = "TELEGRAM_OWNER_ID"
	keyPersonaPath    = "PERSONA_PROMPT_PATH"
	keyDebug          = "DATACOM_DEBUG"
)

type InstallState struct {
	RuntimePath string
	EnvVars     map[string]string
}

func NewInstallState(runtimePath string) *InstallState {
	return &InstallState{
		RuntimePath: runtimePath,
		EnvVars:     make(map[string]string),
	}
}

func (s *InstallState) telegramEnabled() bool {
	return s.EnvVars[keyEnableTelegram] == "true"
}
