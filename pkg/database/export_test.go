package database

import "bufio"

func ReadLine(r *bufio.Reader) (string, error) {
	return readLine(r)
}
