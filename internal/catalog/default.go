package catalog

import "github.com/immuned/rheumabot/internal/models"

// defaultQuestions is the Immuned rheumatology screening set.
var defaultQuestions = []models.Question{
	{
		Prompt:  "Nos últimos 7 dias, com que frequência você sentiu dor nas articulações?",
		Options: []string{"1. Nunca", "2. Ocasionalmente", "3. Frequentemente", "4. Diariamente"},
	},
	{
		Prompt:  "Nos últimos 7 dias, com que intensidade você classificaria sua dor nas articulações em uma escala de 0 a 10?",
		Options: []string{"1. 0", "2. 1-3", "3. 4-6", "4. 7-10"},
	},
	{
		Prompt:  "Você teve dificuldade em realizar suas atividades diárias devido à rigidez nas articulações?",
		Options: []string{"1. Nenhuma", "2. Leve", "3. Moderada", "4. Grave"},
	},
	{
		Prompt:  "Você se sentiu cansado ou exausto sem motivo aparente nos últimos 7 dias?",
		Options: []string{"1. Nunca", "2. Ocasionalmente", "3. Frequentemente", "4. Diariamente"},
	},
	{
		Prompt:  "Você notou algum inchaço em suas articulações nos últimos 7 dias?",
		Options: []string{"1. Nenhum", "2. Leve", "3. Moderado", "4. Grave"},
	},
	{
		Prompt:  "Você conseguiu realizar tarefas como abrir um pote ou subir escadas nos últimos 7 dias?",
		Options: []string{"1. Sem dificuldade", "2. Com alguma dificuldade", "3. Com muita dificuldade", "4. Incapaz de realizar"},
	},
	{
		Prompt:  "Como você classificaria a qualidade do seu sono nos últimos 7 dias?",
		Options: []string{"1. Excelente", "2. Boa", "3. Regular", "4. Ruim"},
	},
	{
		Prompt:  "Você se sentiu ansioso ou deprimido nos últimos 7 dias?",
		Options: []string{"1. Nunca", "2. Ocasionalmente", "3. Frequentemente", "4. Diariamente"},
	},
}

// Default returns the embedded question set.
func Default() *Catalog {
	c, err := New(defaultQuestions)
	if err != nil {
		// The embedded set is validated by tests; this cannot happen at runtime.
		panic(err)
	}
	return c
}
