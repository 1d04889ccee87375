package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"weather-chat/internal/domain"
)

const cityNotFoundMarker = "city not found"

// WeatherProvider returns current conditions for a city.
type WeatherProvider interface {
	FetchWeather(ctx context.Context, city string) (domain.WeatherReading, error)
}

type unavailableReasoner interface {
	UnavailableReason() string
}

// ChatService answers one chat message: weather for a recognised city,
// a plain model reply otherwise.
type ChatService struct {
	llm        TextGenerator
	classifier *Classifier
	weather    WeatherProvider
	logger     *slog.Logger
}

type ChatOption func(*ChatService)

func WithLogger(l *slog.Logger) ChatOption {
	return func(s *ChatService) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewChatService(llm TextGenerator, weather WeatherProvider, opts ...ChatOption) (*ChatService, error) {
	if llm == nil {
		return nil, errors.New("usecase: text generator must not be nil")
	}
	if weather == nil {
		return nil, errors.New("usecase: weather provider must not be nil")
	}
	classifier, err := NewClassifier(llm)
	if err != nil {
		return nil, err
	}
	s := &ChatService{
		llm:        llm,
		classifier: classifier,
		weather:    weather,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handle never fails: every error, including a panic in a collaborator,
// becomes an apology response.
func (s *ChatService) Handle(ctx context.Context, req domain.ChatRequest) (resp domain.ChatResponse) {
	defer func() {
		if r := recover(); r != nil {
			err := newError(ErrorInternal, "panic", fmt.Errorf("%v", r))
			s.logger.ErrorContext(ctx, "chat request panicked", "err", err)
			resp = domain.ErrorResponse(err.UserMessage())
		}
	}()

	out, err := s.handle(ctx, req)
	if err != nil {
		var ucErr *Error
		if !errors.As(err, &ucErr) {
			ucErr = newError(ErrorInternal, "unexpected_error", err)
		}
		s.logger.ErrorContext(ctx, "chat request failed",
			"code", ucErr.Code,
			"reason", ucErr.Reason,
			"err", ucErr.Err,
		)
		return domain.ErrorResponse(ucErr.UserMessage())
	}
	return out
}

func (s *ChatService) handle(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	s.logger.InfoContext(ctx, "user input", "message", req.Message)

	intent, err := s.classifier.Classify(ctx, req.Message)
	if err != nil {
		return domain.ChatResponse{}, err
	}
	s.logger.InfoContext(ctx, "identified intent", "kind", intent.Kind.String(), "city", intent.City)

	switch intent.Kind {
	case domain.NotWeatherQuery:
		return s.genericReply(ctx, req.Message)
	case domain.CityQuery:
		return s.weatherLookup(ctx, intent.City)
	default:
		return domain.ChatResponse{}, newError(ErrorUpstream, "classify_empty", nil)
	}
}

func (s *ChatService) genericReply(ctx context.Context, message string) (domain.ChatResponse, error) {
	text, err := s.llm.Generate(ctx, message)
	if err != nil {
		return domain.ChatResponse{}, newError(ErrorUpstream, "chat_error", err)
	}
	return domain.ChatReply(text), nil
}

func (s *ChatService) weatherLookup(ctx context.Context, city string) (domain.ChatResponse, error) {
	reading, err := s.weather.FetchWeather(ctx, city)
	if err != nil {
		if isCityNotFound(err) {
			return domain.ChatResponse{}, newError(ErrorCityNotFound, "weather_city_not_found", err)
		}
		return domain.ChatResponse{}, newError(ErrorWeatherUnavailable, "weather_error", err)
	}
	return domain.WeatherResponse(reading), nil
}

// isCityNotFound matches the provider's reason text case-insensitively,
// falling back to the full error text when no reason is exposed.
func isCityNotFound(err error) bool {
	text := err.Error()
	var r unavailableReasoner
	if errors.As(err, &r) {
		text = r.UnavailableReason()
	}
	return strings.Contains(strings.ToLower(text), cityNotFoundMarker)
}
