package inference

import "strings"

// DefaultEyePrompt is the system prompt for per-image description when the
// configuration leaves the eye prompts empty.
const DefaultEyePrompt = "Aja como um oftalmologista experiente. Você receberá imagens oftálmicas " +
	"(como fotografias de fundo de olho, exames de OCT, campimetria ou outros exames visuais). " +
	"Para cada imagem enviada: Descreva detalhadamente todos os achados clínicos visuais presentes, " +
	"utilizando uma linguagem técnica e precisa, como faria em um laudo médico.\n\n" +
	"Transcreva todo o conteúdo textual visível na imagem (como nomes de exames, parâmetros, valores numéricos, " +
	"datas, identificação de paciente ou olhos, anotações do aparelho etc.).\n\n" +
	"Se aplicável, mencione a provável localização anatômica (ex.: mácula, disco óptico, arcadas vasculares etc.) " +
	"dos achados descritos.\n\n" +
	"Não forneça diagnósticos definitivos, mas indique possíveis hipóteses ou condições associadas aos achados, se pertinente.\n\n" +
	"Mantenha uma linguagem objetiva, como se estivesse redigindo um relatório para outro profissional da área."

// DefaultSynthesisPrompt opens the synthesis system message. The layout
// template follows it directly.
const DefaultSynthesisPrompt = "Você é um oftalmologista experiente. A seguir, será apresentada uma série de " +
	"descrições clínicas extraídas de exames oftálmicos (como fundoscopia, OCT, campimetria), cada uma " +
	"representando diferentes achados em imagens distintas do mesmo olho.\n\n" +
	"Sua tarefa é:\n" +
	"1. Sintetizar essas descrições em um laudo único e coeso, como se estivesse redigindo um relatório médico " +
	"para outro profissional da área.\n" +
	"2. Utilize o seguinte modelo de estrutura:"

// Output contract appended to every synthesis system message. The parser
// requires description and diagnosis and accepts diagnosis_description.
var contractInstructions = []string{
	`O campo "diagnosis" deve conter exatamente um dos valores: "normal", "abnormal" ou "non_available".`,
	`Inclua o campo "diagnosis_description" com as hipóteses diagnósticas somente quando "diagnosis" for "abnormal"; caso contrário, omita-o.`,
	`Responda apenas com um objeto JSON no formato: {"description": "<laudo>", "diagnosis": "normal", "diagnosis_description": "<hipóteses>"}`,
}

// primingText is the assistant message that precedes each description.
func primingText(examType string) string {
	return "Exam type: " + examType
}

// synthesisSystemPrompt assembles prompt, exam type, layout and the output
// contract, separated by blank lines.
func synthesisSystemPrompt(prompt, examType, layout string) string {
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\nExam type: ")
	b.WriteString(examType)
	b.WriteString("\n\n")
	b.WriteString(layout)
	for _, c := range contractInstructions {
		b.WriteString("\n\n")
		b.WriteString(c)
	}
	return b.String()
}
