package domain

import "encoding/json"

// ChatMessage is the provider-agnostic chat message shape used by the LLM
// integrations.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the inbound body of POST /chat.
type ChatRequest struct {
	Message string `json:"message"`
}

type ResponseKind string

const (
	ResponseWeather ResponseKind = "weather"
	ResponseChat    ResponseKind = "chat"
	ResponseError   ResponseKind = "error"
)

// ChatResponse is the single user-visible outcome of a chat request. Exactly
// one of Weather, Content or Message is meaningful, selected by Kind.
type ChatResponse struct {
	Kind    ResponseKind
	Weather WeatherReading
	Content string
	Message string
}

func WeatherResponse(r WeatherReading) ChatResponse {
	return ChatResponse{Kind: ResponseWeather, Weather: r}
}

func ChatReply(text string) ChatResponse {
	return ChatResponse{Kind: ResponseChat, Content: text}
}

func ErrorResponse(userMessage string) ChatResponse {
	return ChatResponse{Kind: ResponseError, Message: userMessage}
}

type weatherBody struct {
	Type string         `json:"type"`
	Data WeatherReading `json:"data"`
}

type chatBody struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type errorBody struct {
	Response string `json:"response"`
}

// MarshalJSON renders the wire shape of the response. Error responses carry
// no type discriminator.
func (r ChatResponse) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case ResponseWeather:
		return json.Marshal(weatherBody{Type: string(ResponseWeather), Data: r.Weather})
	case ResponseChat:
		return json.Marshal(chatBody{Type: string(ResponseChat), Content: r.Content})
	default:
		return json.Marshal(errorBody{Response: r.Message})
	}
}

type ClassificationKind int

const (
	ClassificationFailed ClassificationKind = iota
	NotWeatherQuery
	CityQuery
)

func (k ClassificationKind) String() string {
	switch k {
	case NotWeatherQuery:
		return "not_weather_query"
	case CityQuery:
		return "city"
	default:
		return "failed"
	}
}

// Classification is the decoded intent of a chat message. City is set only
// for CityQuery.
type Classification struct {
	Kind ClassificationKind
	City string
}
