// Package ocr provides document text extraction through Mistral Document AI.
//
// Mistral Document AI is hosted on Azure AI Foundry and reached with the same
// endpoint and key as Azure OpenAI. It is an OCR service: it returns the text of
// a document as markdown, one entry per page, and does not answer questions. The
// caller's prompt is therefore not sent; it is echoed at the top of the combined
// result so the consumer sees what was asked.
//
// # Endpoint
//
// The OCR route lives on the Foundry host rather than the Cognitive Services host:
//
//	https://<name>.cognitiveservices.azure.com  ->  https://<name>.services.ai.azure.com
//	                                                 /providers/mistral/azure/ocr
//
// # Functions
//
//   - ExtractText: OCR a single document (data URL or remote URL)
//   - Analyze: OCR every image of a request and combine the results
//
// # Error Handling
//
// ExtractText returns a *provider.RemoteError for transport failures and
// non-200 responses. Analyze never fails because of one image: the failure is
// written inline in that image's section and the remaining images are still
// processed. Images are sent one at a time, in request order.
package ocr
