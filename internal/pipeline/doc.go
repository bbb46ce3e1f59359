// Package pipeline runs the analysis of a page as a sequence of steps.
//
// The default pipeline fetches the page, extracts its scripts, analyzes each
// script in document order and finally looks for matching local files. Each
// stage is implemented as a Step that receives the current report and can
// modify it.
//
// Steps never run concurrently and a step issues at most one request at a
// time, so the report needs no locking.
package pipeline
