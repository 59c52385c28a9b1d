// Package botconfig loads the intake bot's reply templates.
//
// Templates ship with built-in Portuguese defaults and can be overridden from
// a YAML file so operators can adjust wording without a rebuild. The flow
// structure itself (stages, validation rules) is fixed in code; only the
// texts and the five contact reason labels are configurable.
package botconfig

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/goccy/go-yaml"
)

// ReasonCount is the fixed number of contact reason options the bot offers.
const ReasonCount = 5

// Templates holds every reply text the intake bot can send.
// Printf-style placeholders are documented per field.
type Templates struct {
	// Welcome is sent on the first inbound message and re-lists the
	// person type options.
	Welcome string `yaml:"welcome"`
	// InvalidPersonType re-prompts when the answer is not 1 or 2.
	InvalidPersonType string `yaml:"invalid_person_type"`
	// DocumentPromptIndividual asks for the CPF.
	DocumentPromptIndividual string `yaml:"document_prompt_individual"`
	// DocumentPromptOrganization asks for the CNPJ.
	DocumentPromptOrganization string `yaml:"document_prompt_organization"`
	// InvalidDocument re-prompts on wrong digit count. Placeholders: document
	// kind label (CPF/CNPJ), expected digit count.
	InvalidDocument string `yaml:"invalid_document"`
	// NamePromptIndividual asks for the person's full name.
	NamePromptIndividual string `yaml:"name_prompt_individual"`
	// NamePromptOrganization asks for the company name.
	NamePromptOrganization string `yaml:"name_prompt_organization"`
	// InvalidName re-prompts when the trimmed name is shorter than 3 characters.
	InvalidName string `yaml:"invalid_name"`
	// ReasonPrompt lists the contact reason options. Placeholder: the
	// rendered option list.
	ReasonPrompt string `yaml:"reason_prompt"`
	// InvalidReason re-prompts on an unrecognized choice. Placeholder: the
	// rendered option list.
	InvalidReason string `yaml:"invalid_reason"`
	// Summary closes the flow. Placeholders: name, document, contact reason,
	// ticket ID.
	Summary string `yaml:"summary"`
	// Reasons are the five contact reason labels, in menu order 1..5.
	Reasons []string `yaml:"reasons"`
}

// Defaults returns the built-in Portuguese template set.
func Defaults() Templates {
	return Templates{
		Welcome: "Olá! 👋 Bem-vindo(a) ao atendimento CentralFlow.\n" +
			"Para começar, me diga: você é\n" +
			"1 - Pessoa Física\n" +
			"2 - Pessoa Jurídica\n\n" +
			"Responda com 1 ou 2.",
		InvalidPersonType: "Não entendi. 🤔 Responda com:\n" +
			"1 - Pessoa Física\n" +
			"2 - Pessoa Jurídica",
		DocumentPromptIndividual:   "Perfeito! Agora me informe seu CPF (apenas números):",
		DocumentPromptOrganization: "Perfeito! Agora me informe o CNPJ da empresa (apenas números):",
		InvalidDocument:            "%s inválido. O %s deve ter %d dígitos. Tente novamente:",
		NamePromptIndividual:       "Obrigado! Qual é o seu nome completo?",
		NamePromptOrganization:     "Obrigado! Qual é o nome da empresa?",
		InvalidName:                "O nome precisa ter pelo menos 3 caracteres. Tente novamente:",
		ReasonPrompt:               "Ótimo! Por último, qual o motivo do seu contato?\n%s",
		InvalidReason:              "Opção inválida. Escolha um dos motivos abaixo:\n%s",
		Summary: "Tudo certo! ✅ Aqui está o resumo do seu atendimento:\n" +
			"Nome: %s\n" +
			"Documento: %s\n" +
			"Motivo: %s\n" +
			"Chamado: #%d\n\n" +
			"Em breve um de nossos atendentes falará com você.",
		Reasons: []string{
			"Suporte técnico",
			"Dúvidas sobre produtos",
			"Solicitação comercial",
			"Reclamação",
			"Outros",
		},
	}
}

// Load reads templates from a YAML file layered over the defaults. Fields
// absent from the file keep their default values.
func Load(path string) (Templates, error) {
	t := Defaults()

	input, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("failed to read bot templates %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewBuffer(input))
	if err := dec.Decode(&t); err != nil {
		return t, fmt.Errorf("failed to parse bot templates %s: %w", path, err)
	}

	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("invalid bot templates %s: %w", path, err)
	}
	slog.Info("botconfig templates loaded", "path", path)
	return t, nil
}

// Validate checks structural requirements the engine depends on.
func (t Templates) Validate() error {
	if len(t.Reasons) != ReasonCount {
		return fmt.Errorf("expected exactly %d contact reasons, got %d", ReasonCount, len(t.Reasons))
	}
	for i, r := range t.Reasons {
		if r == "" {
			return fmt.Errorf("contact reason %d is empty", i+1)
		}
	}
	return nil
}

// Provider hands out the current template set and supports atomic swaps on
// reload. Safe for concurrent use.
type Provider struct {
	mu   sync.RWMutex
	tmpl Templates
}

// NewProvider creates a Provider serving the given template set.
func NewProvider(t Templates) *Provider {
	return &Provider{tmpl: t}
}

// Get returns the current template set.
func (p *Provider) Get() Templates {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tmpl
}

// Set replaces the current template set.
func (p *Provider) Set(t Templates) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tmpl = t
}
