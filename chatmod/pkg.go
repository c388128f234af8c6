package chatmod

import (
	"github.com/bluesky-social/chatmod/chatmod/engine"
	"github.com/bluesky-social/chatmod/chatmod/settings"
)

type Engine = engine.Engine
type EngineConfig = engine.EngineConfig
type Request = engine.Request
type Verdict = engine.Verdict
type FilterType = engine.FilterType
type EvaluationError = engine.EvaluationError

type Severity = settings.Severity
type Action = settings.Action
type FilterSettings = settings.FilterSettings
type URLSettings = settings.URLSettings

var (
	NewEngine = engine.NewEngine

	ErrBatchTooLarge  = engine.ErrBatchTooLarge
	ErrInvalidMessage = engine.ErrInvalidMessage
)

const (
	MaxBatchSize = engine.MaxBatchSize

	FilterNone      = engine.FilterNone
	FilterProfanity = engine.FilterProfanity
	FilterSpam      = engine.FilterSpam
	FilterURL       = engine.FilterURL
	FilterCombined  = engine.FilterCombined
)
