package rag

import (
	"fmt"
	"strings"
)

// Sentinel answer phrases. The model is instructed to emit the first
// two; the third is produced locally when generation fails.
const (
	notFoundSentinel     = `Non trovato nei documenti caricati`
	insufficientSentinel = `Non ho informazioni sufficienti per rispondere a questa domanda.`
	generationFailedMsg  = `Si è verificato un errore durante la generazione della risposta.`
)

// buildPrompt renders the generation prompt. With context it enumerates
// each chunk under a numbered "Source N" label and restricts the model
// to the provided context; without context it permits general-knowledge
// answers.
func buildPrompt(query string, contexts []string) string {
	if len(contexts) == 0 {
		return fmt.Sprintf(`Answer the question based on general knowledge. If you cannot answer, say "%s"

Question: %s

Answer:`, insufficientSentinel, query)
	}

	var sb strings.Builder
	for i, text := range contexts {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "Source %d: %s", i+1, text)
	}

	return fmt.Sprintf(`Answer the question based only on the provided context. Cite the sources when relevant. If the context does not contain the information, say "%s".

Context:

%s

Question: %s

Answer:`, notFoundSentinel, sb.String(), query)
}
