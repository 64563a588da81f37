package wellness

import (
	"strings"
	"unicode"
)

type Sentiment string

const (
	SentimentPositive   Sentiment = "positive"
	SentimentSupportive Sentiment = "supportive"
	SentimentNeutral    Sentiment = "neutral"
	SentimentNegative   Sentiment = "negative"
)

var (
	supportiveWords = []string{"proud", "here for you", "support", "love you", "nice job", "well done", "you can", "great job", "celebrate", "wonderful", "thank you", "thanks"}
	positiveWords   = []string{"good", "great", "happy", "amazing", "awesome", "fun", "excited", "love", "glad", "yay", "best"}
	negativeWords   = []string{"sad", "angry", "upset", "tired", "stressed", "anxious", "worried", "bad", "hate", "awful", "lonely", "overwhelmed"}
)

// ClassifySentiment labels a chat message by keyword match. Supportive
// phrasing wins over plain positive words; negative words win when they
// outnumber positive ones.
func ClassifySentiment(text string) Sentiment {
	lower := strings.ToLower(text)
	normalized := strings.Join(strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	}), " ")
	if normalized == "" {
		return SentimentNeutral
	}
	padded := " " + normalized + " "

	count := func(words []string) int {
		n := 0
		for _, w := range words {
			if strings.Contains(padded, " "+w+" ") {
				n++
			}
		}
		return n
	}

	pos, neg, sup := count(positiveWords), count(negativeWords), count(supportiveWords)
	switch {
	case sup > 0 && sup >= neg:
		return SentimentSupportive
	case neg > pos:
		return SentimentNegative
	case pos > 0:
		return SentimentPositive
	default:
		return SentimentNeutral
	}
}
