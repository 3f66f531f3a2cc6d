// Package password implements password hashing and verification with Argon2id.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Salt and hash use unpadded standard base64. Padded input is accepted on
// Verify so hashes produced by other tools still load.
//
// [Hasher.NeedsRehash] reports hashes made with weaker parameters so a caller
// can re-hash after the next successful login.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other wordauth package.
//   - Log plaintext passwords or hash material.
package password
