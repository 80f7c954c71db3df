// Package extract defines the provider-agnostic contract for turning a
// receipt image into raw model text. Adapters differ only in transport and
// authentication; the prompt and the error taxonomy are shared.
package extract

import "context"

// Request carries one receipt image to a vision-capable model. The sender's
// display name is offered to the model as fallback identity when the
// document itself does not name the buyer.
type Request struct {
	ImageBytes        []byte
	MimeType          string
	SenderDisplayName string
}

// Client is implemented by every extraction provider adapter.
type Client interface {
	// Extract sends the image and returns the raw model response text,
	// possibly fenced or wrapped in prose. Failures are *ProviderError.
	Extract(ctx context.Context, req Request) (string, error)
	// Model returns the configured model identifier, for logging.
	Model() string
}

// SystemPrompt is the fixed extraction instruction template, kept verbatim
// from the production bot so replies stay comparable across providers.
const SystemPrompt = `Você é um extrator de dados financeiros especializado em processar comprovantes de pagamento, notas fiscais e recibos.

### REGRAS DE EXTRAÇÃO:

1. **IDENTIFICAÇÃO DO USUÁRIO**:
   - Se o nome do consumidor/comprador estiver no documento, use-o.
   - Se não estiver presente, use o nome fornecido do remetente.

2. **CATEGORIZAÇÃO AUTOMÁTICA**:
   - Escolha APENAS UMA categoria da lista: [Alimentação, Transporte, Moradia, Lazer, Saúde, Outros]
   - Baseie-se no tipo de estabelecimento e descrição do gasto.

3. **EXTRAÇÃO DE VALORES**:
   - Ignore taxas, juros futuros, multas e valores parcelados.
   - Capture SEMPRE o valor TOTAL PAGO/FINAL.
   - Remova símbolos de moeda (R$, $, etc).
   - Use PONTO como separador decimal (ex: 150.50).

4. **DATA DO PAGAMENTO**:
   - Extraia a data da transação no formato DD/MM/AAAA.
   - Se houver apenas hora, use a data atual.

5. **ESTABELECIMENTO**:
   - Nome completo do estabelecimento/empresa.
   - Remova CNPJ e informações desnecessárias.

6. **DESCRIÇÃO CURTA**:
   - Resuma em até 5 palavras o que foi comprado/serviço.

### SAÍDA OBRIGATÓRIA (JSON PURO - SEM MARKDOWN):
{
  "data": "DD/MM/AAAA",
  "usuario": "String",
  "estabelecimento": "String",
  "valor": 00.00,
  "categoria": "String",
  "descricao_curta": "String"
}

IMPORTANTE: Retorne APENAS o JSON válido, sem explicações, sem markdown, sem texto adicional.`

// UserPrompt builds the per-request user text carrying the sender identity.
func UserPrompt(senderDisplayName string) string {
	return `Nome do remetente do WhatsApp (use se necessário): "` + senderDisplayName + `"

Analise esta imagem de comprovante de pagamento/nota fiscal e extraia os dados financeiros conforme as instruções. Retorne APENAS o JSON solicitado.`
}
