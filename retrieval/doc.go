// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package retrieval builds grounded context for questions about a tenant's
// ERP documents.
//
// The Retriever embeds a question, ranks the tenant's vector records by
// similarity, and hands the ranked list to a Packer. The Packer keeps the
// longest ranked prefix whose estimated token count fits the budget and joins
// the masked texts with a separator. Only masked text is ever stored in the
// vector store, so packed context is safe to pass to a language model.
//
// Every retrieval is recorded in the query log for audit and leakage
// scanning.
package retrieval
