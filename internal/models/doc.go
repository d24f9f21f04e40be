// Package models defines the core domain models for tillsync.
//
// # Model Groups
//
//   - CacheRecord / Setting: locally cached copies of server-owned data
//     (products, customers, bills) used to render while offline
//   - PendingTransaction: a sale captured while offline, queued for replay
//   - CartItem / BillPayload / SplitPayment: checkout inputs and the
//     settlement payload submitted to the remote billing API
//
// # Design Principles
//
//  1. Read models are opaque to the pipeline: the store never interprets
//     the cached JSON beyond its identifier and freshness timestamp
//  2. The settlement payload is self-contained: everything needed to replay
//     the sale later (line prices, customer reference, totals, payment
//     breakdown) is stamped into it at settlement time
//  3. The same payload shape flows through the direct-online path and the
//     offline queue, so checkout is transparent to connectivity
package models
