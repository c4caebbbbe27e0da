package tts

import (
	"context"
	"fmt"
	"os"
	"runtime"
)

type EngineType string

const (
	EngineTypeAuto          EngineType = "auto" // pick the best engine for the platform
	EngineTypeSupertone     EngineType = "supertone"
	EngineTypeGoogleClassic EngineType = "googleclassic"
	EngineTypeESpeak        EngineType = "espeak"
	EngineTypeSay           EngineType = "say"  // macOS only
	EngineTypeSAPI          EngineType = "sapi" // Windows only
	EngineTypeMock          EngineType = "mock"
)

func (e EngineType) String() string {
	return string(e)
}

// NewEngine creates a TTS engine based on the provided config
func NewEngine(ctx context.Context, config Config) (Engine, error) {
	config.Type = Resolve(config).String()

	switch config.Type {
	case EngineTypeSupertone.String():
		return NewSupertoneEngine(config.Supertone)

	case EngineTypeGoogleClassic.String():
		return NewGoogleClassicEngine(ctx)

	case EngineTypeESpeak.String():
		return NewESpeakEngine()

	case EngineTypeSay.String():
		if runtime.GOOS != "darwin" {
			return nil, fmt.Errorf("say engine only supports macOS")
		}
		return NewSayEngine()

	case EngineTypeSAPI.String():
		if runtime.GOOS != "windows" {
			return nil, fmt.Errorf("SAPI engine only supports Windows")
		}
		return NewSAPIEngine()

	case EngineTypeMock.String():
		return NewMockEngine(), nil

	default:
		return nil, fmt.Errorf("unsupported TTS engine type: %s", config.Type)
	}
}

// Resolve returns the engine type NewEngine would build for config
func Resolve(config Config) EngineType {
	if config.Type == "" || config.Type == EngineTypeAuto.String() {
		return bestEngineForPlatform(config)
	}
	return EngineType(config.Type)
}

// bestEngineForPlatform prefers the cloud engines when credentials exist
func bestEngineForPlatform(config Config) EngineType {
	if config.Supertone.APIKey != "" {
		return EngineTypeSupertone
	}
	if hasGoogleCredentials() {
		return EngineTypeGoogleClassic
	}

	switch runtime.GOOS {
	case "windows":
		return EngineTypeSAPI
	case "darwin":
		return EngineTypeSay
	default:
		return EngineTypeESpeak
	}
}

// AvailableEngines returns engines usable on the current platform
func AvailableEngines(config Config) []EngineType {
	engines := []EngineType{EngineTypeMock, EngineTypeESpeak}

	if config.Supertone.APIKey != "" {
		engines = append(engines, EngineTypeSupertone)
	}
	if hasGoogleCredentials() {
		engines = append(engines, EngineTypeGoogleClassic)
	}

	switch runtime.GOOS {
	case "windows":
		engines = append(engines, EngineTypeSAPI)
	case "darwin":
		engines = append(engines, EngineTypeSay)
	}

	return engines
}

func hasGoogleCredentials() bool {
	_, ok := os.LookupEnv("GOOGLE_APPLICATION_CREDENTIALS")
	return ok
}
