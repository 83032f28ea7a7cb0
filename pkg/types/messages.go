package types

// Client -> Server
// PerformAction:
//   action: "attack" | "ability" | "defend"
//   fire-and-forget; illegal actions (out of turn, spent ability,
//   finished battle) are dropped server-side without an error reply

// Server -> Client
// StateSnapshot:
//   version: number
//   view:
//     battle: { id, status: "waiting"|"active"|"completed",
//               current_turn?: participant_id, winner_id?: user_id }
//     participants: [ { id, user_id, current_hp, position,
//                       has_used_ability, is_defending, card } ]
//     action_log: string[]  // newest first, rebuilt from turn rows
//     failed?: boolean      // invariant violation, battle unplayable
//
// Error:
//   error: string
