package usecase

import (
	"strings"

	"weather-chat/internal/domain"
)

// NotWeatherQuery is the sentinel the model returns for non-weather input.
const NotWeatherQuery = "NOT_WEATHER_QUERY"

func buildClassificationPrompt(message string) string {
	return strings.Join([]string{
		"You are a weather query assistant. Please analyze the following user input:",
		"1. If the user is asking about weather information for a city (including temperature, weather conditions, etc.), please return only the city name.",
		"2. If it's not a weather query, please return '" + NotWeatherQuery + "'.",
		"3. Please ensure the returned city name is accurate and contains no other text.",
		"",
		"Examples:",
		`Input: "How's the weather in London today?" -> Return: "London"`,
		`Input: "Hello, how are you doing?" -> Return: "` + NotWeatherQuery + `"`,
		"",
		"User input: " + message,
	}, "\n")
}

// parseClassification is the only place that interprets raw model output.
// The sentinel match is exact and case-sensitive; any other non-empty text
// is taken as the city name unchanged.
func parseClassification(raw string) domain.Classification {
	text := strings.TrimSpace(raw)
	switch text {
	case "":
		return domain.Classification{Kind: domain.ClassificationFailed}
	case NotWeatherQuery:
		return domain.Classification{Kind: domain.NotWeatherQuery}
	default:
		return domain.Classification{Kind: domain.CityQuery, City: text}
	}
}
