// Package static は、配信ルート以下のファイルをHTTPで返すハンドラを提供します。
//
// 責務:
//   - リクエストパスを配信ルートに対して解決する
//   - ファイルを拡張子に応じたContent-Typeで返す
//   - ディレクトリへのアクセスではインデックスファイルまたは一覧を返す
//   - 存在しないパス・ルート外を指すパスをエラーステータスに変換する
//
// 仕様:
//   - ファイルは os.Root 経由で開くため、".." やシンボリックリンクで
//     配信ルートの外に出ることはできない
//   - 生のパスに ".." セグメントが含まれる場合は 400 を返す
//   - インデックスのないディレクトリは一覧（200）を返す。
//     DirectoryListing が無効な場合は 403
//   - 受け付けるメソッドは GET と HEAD のみ
package static
