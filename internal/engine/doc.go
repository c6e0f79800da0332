// Package engine runs the periodic alert evaluation cycle: fetch the current
// Kp reading, hand it to a notification policy, and record what happened.
//
// Two policies are provided. CooldownPolicy sends one email per eligible
// subscriber and records the send time so the subscriber is not notified again
// within the cooldown window. DigestPolicy ignores cooldown and enqueues one
// message per matching subscriber into a mailbox consumed by a separate
// delivery pipeline.
package engine
