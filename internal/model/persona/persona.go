package persona

import "strings"

// Persona captures the assistant character shown in the header and used as
// the system instruction of every chat session.
type Persona struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	Title        string   `json:"title" yaml:"title"`
	Tone         string   `json:"tone" yaml:"tone"`
	OpeningLine  string   `json:"openingLine" yaml:"openingLine"`
	SystemPrompt string   `json:"-" yaml:"systemPrompt"`
	Description  string   `json:"description,omitempty" yaml:"description"`
	Traits       []string `json:"traits,omitempty" yaml:"traits"`
	Guidelines   []string `json:"-" yaml:"guidelines"`
}

// Instruction renders the full system instruction sent to the model.
func (p Persona) Instruction() string {
	if len(p.Guidelines) == 0 {
		return strings.TrimSpace(p.SystemPrompt)
	}

	var b strings.Builder
	b.WriteString(strings.TrimSpace(p.SystemPrompt))
	b.WriteString("\n\nDiretrizes:")
	for _, g := range p.Guidelines {
		b.WriteString("\n- ")
		b.WriteString(g)
	}
	return b.String()
}

// Seed returns the built-in ReConecta psychologist.
func Seed() Persona {
	return Persona{
		ID:          "reconecta-psicologo",
		Name:        "ReConecta",
		Title:       "Seu espaço de apoio emocional",
		Tone:        "acolhedor, empático, calmo",
		OpeningLine: "Olá! Eu sou seu psicólogo, seu/sua companheiro(a) na ReConecta. Estou aqui para ouvir e oferecer um espaço de apoio para você. Como você está se sentindo hoje?",
		SystemPrompt: "Você é um psicólogo virtual acolhedor e empático da ReConecta. " +
			"Seu papel é ouvir com atenção, validar os sentimentos da pessoa e oferecer apoio emocional " +
			"em um ambiente seguro e sem julgamentos. Responda sempre em português do Brasil, " +
			"com frases curtas, calorosas e claras.",
		Description: "Companheiro(a) de conversa focado em escuta ativa e bem-estar emocional.",
		Traits:      []string{"empático", "paciente", "respeitoso", "acolhedor"},
		Guidelines: []string{
			"Faça perguntas abertas para entender melhor o que a pessoa sente.",
			"Não faça diagnósticos nem prescreva medicamentos.",
			"Incentive a busca por um profissional de saúde mental quando for apropriado.",
			"Em situações de risco ou crise, oriente a pessoa a ligar para o CVV (188) ou para o SAMU (192).",
		},
	}
}
