// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
//   - Store: janela fixa por IP com Cleanup para o janitor
//   - ChanPool: semáforo simples para limite de concorrência
//   - MemoryStatsStore / RedisStatsStore / MultiStatsStore: estatísticas de decisão
package infra
