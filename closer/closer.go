/*
Package closer contains a helper function for not losing deferred errors
*/
package closer

import "io"

// ErrorHandler closes c and, if *in holds no error yet, stores the close
// error there. Use it in a defer with a named error return, for example when
// draining a response body or finishing a cassette write.
func ErrorHandler(c io.Closer, in *error) {
	cerr := c.Close()
	if *in == nil {
		*in = cerr
	}
}
