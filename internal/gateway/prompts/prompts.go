// Package prompts holds the mentor system prompts sent to the chat providers.
package prompts

import "github.com/istorica/mentorai/internal/model"

const cronicusRO = "Ești Cronicus, mentor academic de istorie. Răspunde clar, analitic și bilingv (RO/RU) dacă este cazul. Oferă explicații structurate și exemple concrete."

const cronicusRU = "Вы Cronicus, академический наставник по истории. Отвечайте четко, аналитически и на двух языках (RO/RU) при необходимости."

// System returns the mentor system prompt for the given content language.
// Anything other than RU falls back to the Romanian prompt.
func System(lang model.Language) string {
	if lang == model.LangRU {
		return cronicusRU
	}
	return cronicusRO
}
