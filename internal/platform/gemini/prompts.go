package gemini

import (
	"bytes"
	"fmt"
	"text/template"
)

// Labels the model is allowed to return for text sentiment.
var sentimentLabels = []string{"positive", "negative", "neutral"}

const sentimentPrompt = `Classify the sentiment of the text between the markers.
Respond with a JSON object {"category": one of {{range $i, $l := .Labels}}{{if $i}}, {{end}}"{{$l}}"{{end}}, "confidence": number between 0 and 1}.
---
{{.Text}}
---`

const imagePrompt = `Classify the main subject of the attached image with a single lowercase word or short phrase.
Respond with a JSON object {"category": string, "confidence": number between 0 and 1}.`

var (
	sentimentTemplate = template.Must(template.New("sentiment").Parse(sentimentPrompt))
	imageTemplate     = template.Must(template.New("image").Parse(imagePrompt))
)

type promptData struct {
	Text   string
	Labels []string
}

func render(tmpl *template.Template, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute %s prompt template: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
