// Package docs provides generated OpenAPI documentation.
//
// IELTS Task 1 Metadata Extraction API
//
//	@title			IELTS Task 1 Metadata Extraction API
//	@version		1.0.0
//	@description	Turns IELTS Academic Writing Task 1 images into schema-validated JSON metadata.
//
//	@contact.name	API Support
//	@contact.url	https://github.com/jackzampolin/ieltsmeta
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g doc.go -d .,../internal/server/endpoints -o ./swagger --parseDependency --parseInternal
