// Package confloader loads configuration with koanf.
//
// Sources, lowest priority first:
//
//  1. Defaults already set on the target struct
//  2. A YAML file
//  3. Environment variables under a prefix, "__" separating nesting levels
//  4. Fallback variables for single keys left unset
//
// Watcher follows the file with fsnotify; KeyReloader turns a change into
// a call with the new value of one key. The server uses it to hot-reload
// log.level only.
package confloader
