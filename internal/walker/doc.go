// Package walker traverses Microsoft 365 resource hierarchies and hands
// each crawlable item to a visitor.
//
// Three walkers cover the three resource families:
//
//   - DriveWalker walks a drive's folder tree in pre-order, streaming
//     page by page so huge folders never need full materialisation.
//   - NotebookWalker flattens a OneNote notebook into one text document,
//     restoring creation order that Graph returns reversed.
//   - ConversationWalker walks Teams channel messages with their reply
//     threads, and merges each chat's history into a single document.
//
// Walkers degrade per branch rather than per walk: a missing or
// forbidden subtree is logged and skipped, and the rest of the traversal
// continues. Only visitor errors and context cancellation abort a walk.
package walker
