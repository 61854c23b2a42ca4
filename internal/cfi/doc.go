// Package cfi implements Canonical Fragment Identifiers: strings of the form
//
//	epubcfi(/6/4[chap01ref]!/4[body01]/10[para05]/2/1:3)
//
// that address a position or span inside an element/text tree. The part
// before '!' locates the sub-document in its reading order, the part after
// it locates a point within that sub-document. Ranges factor the common
// prefix of their endpoints into the path and carry the divergent tails:
//
//	epubcfi(/6/4!/4/10,/2/1:3,/4/1:7)
//
// Parsing, formatting and comparison work on the model alone. Generation
// and resolution walk a caller supplied Node tree and never mutate it.
package cfi
