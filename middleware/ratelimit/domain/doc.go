// Package domain define contratos e tipos de domínio para rate limit e concorrência.
//
// Este pacote não depende de net/http nem de implementações concretas.
// A janela fixa por IP, o pool de vagas e as estatísticas de decisão são
// descritos aqui e implementados em infra.
package domain
