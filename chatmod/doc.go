// Chat content moderation engine.
//
// This package (`github.com/bluesky-social/chatmod/chatmod`) decides, for a chat message sent in a community, whether the message is clean, which categories it violates (profanity, spam, disallowed links), how severe the violation is, and what action should follow (pass, warn, censor, block). Matching is done against normalized text, so common obfuscations (leetspeak, inserted punctuation, diacritics) are still caught; repeated letters are not folded. Each community can overlay its own word lists, spam patterns, link rules and severity actions on top of the defaults; configuration is read through a cache, and falls back to defaults when the configuration store is unavailable.
//
// See `cmd/hush` for an HTTP daemon and CLI built on this package.
package chatmod
